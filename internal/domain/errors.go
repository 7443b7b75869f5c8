package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInputNotFound indica que o arquivo de entrada não existe.
	ErrInputNotFound = errors.New("arquivo de entrada não encontrado")

	// ErrParse indica tabela malformada: cabeçalho ou coluna ausente,
	// linha com número errado de campos, data ou número inválido.
	ErrParse = errors.New("erro de parse")

	// ErrTypeConversion indica valor que não pode ser convertido para o tipo exigido.
	ErrTypeConversion = errors.New("erro de conversão de tipo")

	// ErrWrite indica falha de I/O ao gravar o documento de saída.
	ErrWrite = errors.New("erro de escrita")
)

// RowError localiza uma falha em uma linha específica da entrada.
type RowError struct {
	File   string
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *RowError) Error() string {
	where := fmt.Sprintf("linha %d", e.Line)
	if e.File != "" {
		where = fmt.Sprintf("%s:%d", e.File, e.Line)
	}
	if e.Column == "" {
		return fmt.Sprintf("%s: %v", where, e.Err)
	}
	return fmt.Sprintf("%s: coluna %q (valor %q): %v", where, e.Column, e.Value, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}
