package blob

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FS implements Store on the local filesystem. Each blob is a data file
// plus a `.meta` JSON sidecar holding content type and original filename.
// Keys are alarm ids (opaque, flat), so no nesting is supported.
type FS struct {
	root string
}

// NewFS returns a filesystem store rooted at path, creating it if needed.
func NewFS(root string) (*FS, error) {
	if root == "" {
		root = "./audiodata"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &FS{root: root}, nil
}

func (s *FS) Driver() Driver { return DriverFilesystem }

func (s *FS) paths(key string) (dataPath, metaPath string, err error) {
	if strings.TrimSpace(key) == "" {
		return "", "", fmt.Errorf("empty key")
	}
	if strings.ContainsAny(key, "/\\") || strings.Contains(key, "..") {
		return "", "", fmt.Errorf("invalid key %q", key)
	}
	dataPath = filepath.Join(s.root, key)
	return dataPath, dataPath + ".meta", nil
}

func (s *FS) Put(_ context.Context, key string, r io.Reader, info Info) (Info, error) {
	dataPath, metaPath, err := s.paths(key)
	if err != nil {
		return Info{}, err
	}
	tmp, err := os.CreateTemp(s.root, ".tmp-*")
	if err != nil {
		return Info{}, err
	}
	defer os.Remove(tmp.Name())
	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return Info{}, err
	}
	if err := tmp.Close(); err != nil {
		return Info{}, err
	}
	if err := os.Rename(tmp.Name(), dataPath); err != nil {
		return Info{}, err
	}
	info.Key = key
	info.Size = size
	meta, err := json.Marshal(info)
	if err != nil {
		return Info{}, err
	}
	if err := os.WriteFile(metaPath, meta, 0o644); err != nil {
		return Info{}, err
	}
	return info, nil
}

func (s *FS) Get(_ context.Context, key string) (Info, io.ReadCloser, error) {
	dataPath, metaPath, err := s.paths(key)
	if err != nil {
		return Info{}, nil, err
	}
	f, err := os.Open(dataPath)
	if err != nil {
		if os.IsNotExist(err) {
			return Info{}, nil, ErrNotFound
		}
		return Info{}, nil, err
	}
	info := Info{Key: key}
	if meta, err := os.ReadFile(metaPath); err == nil {
		_ = json.Unmarshal(meta, &info)
	}
	if st, err := f.Stat(); err == nil {
		info.Size = st.Size()
	}
	return info, f, nil
}

func (s *FS) Delete(_ context.Context, key string) error {
	dataPath, metaPath, err := s.paths(key)
	if err != nil {
		return err
	}
	if err := os.Remove(dataPath); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	_ = os.Remove(metaPath)
	return nil
}

func (s *FS) List(_ context.Context) ([]Info, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}
	var out []Info
	for _, e := range entries {
		if e.IsDir() || strings.HasSuffix(e.Name(), ".meta") || strings.HasPrefix(e.Name(), ".tmp-") {
			continue
		}
		info := Info{Key: e.Name()}
		if meta, err := os.ReadFile(filepath.Join(s.root, e.Name()+".meta")); err == nil {
			_ = json.Unmarshal(meta, &info)
		}
		if fi, err := e.Info(); err == nil {
			info.Size = fi.Size()
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
