package jsonfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jeovahfialho/stock-series/internal/domain"
)

// Write serializa v em path de forma atômica: grava num arquivo temporário
// no mesmo diretório e renomeia. Em caso de falha o destino não é tocado.
func Write(path string, v any, pretty bool) error {
	var (
		data []byte
		err  error
	)
	if pretty {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return fmt.Errorf("%w: erro ao serializar: %v", domain.ErrWrite, err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: erro ao criar arquivo temporário: %v", domain.ErrWrite, err)
	}
	tempFile := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tempFile)
		return fmt.Errorf("%w: erro ao salvar arquivo: %v", domain.ErrWrite, err)
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tempFile)
		return fmt.Errorf("%w: erro ao sincronizar arquivo: %v", domain.ErrWrite, err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("%w: erro ao fechar arquivo: %v", domain.ErrWrite, err)
	}

	if err := os.Chmod(tempFile, 0644); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("%w: erro ao ajustar permissões: %v", domain.ErrWrite, err)
	}

	if err := os.Rename(tempFile, path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("%w: erro ao renomear arquivo: %v", domain.ErrWrite, err)
	}

	return nil
}

func WriteDocument(path string, doc *domain.Document, pretty bool) error {
	return Write(path, doc, pretty)
}

func ReadDocument(path string) (*domain.Document, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrInputNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: erro ao ler %s: %v", domain.ErrParse, path, err)
	}

	var doc domain.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: documento inválido %s: %v", domain.ErrParse, path, err)
	}

	return &doc, nil
}
