package storage

import (
	"context"
	"encoding/json"
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
)

// JSONFile is a Memory that is read from a file at Open and written
// back, in full, after every Put.
//
// Not glamorous or efficient.
type JSONFile struct {
	Memory

	Filename string
}

func NewJSONFile(filename string) (*JSONFile, error) {
	if filename == "" {
		return nil, errors.New("storage: no filename")
	}
	return &JSONFile{
		Memory: Memory{
			nss: make(map[string]map[string]string),
		},
		Filename: filename,
	}, nil
}

// Open reads the file if it exists.
func (s *JSONFile) Open(ctx context.Context) error {
	js, err := ioutil.ReadFile(s.Filename)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	nss := make(map[string]map[string]string)
	if err = json.Unmarshal(js, &nss); err != nil {
		return err
	}
	s.Lock()
	s.nss = nss
	s.Unlock()
	return nil
}

func (s *JSONFile) Put(ctx context.Context, ns, key, val string) error {
	if err := s.Memory.Put(ctx, ns, key, val); err != nil {
		return err
	}
	return s.write()
}

// write replaces the file via a rename so that readers never see a
// partial file.
func (s *JSONFile) write() error {
	s.RLock()
	js, err := json.MarshalIndent(&s.nss, "", "  ")
	s.RUnlock()
	if err != nil {
		return err
	}
	tmp, err := ioutil.TempFile(filepath.Dir(s.Filename), ".storage-*")
	if err != nil {
		return err
	}
	if _, err = tmp.Write(js); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err = tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.Filename)
}
