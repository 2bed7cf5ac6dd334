package aria2

import (
	"encoding/json"
	"path/filepath"
	"strings"
)

// Download is one tracked download as reported by the RPC endpoint. File
// paths are absolute; relative entries are resolved against the download
// directory during decoding.
type Download struct {
	GID    string
	Name   string
	Status string
	Files  []string
}

// Complete reports whether the download finished successfully.
func (d Download) Complete() bool { return d.Status == "complete" }

type rpcRequest struct {
	Version string `json:"jsonrpc"`
	ID      string `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type rpcResponse struct {
	Version string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string { return e.Message }

type statusPayload struct {
	GID    string `json:"gid"`
	Status string `json:"status"`
	Dir    string `json:"dir"`
	Files  []struct {
		Path string `json:"path"`
	} `json:"files"`
	Bittorrent struct {
		Info struct {
			Name string `json:"name"`
		} `json:"info"`
	} `json:"bittorrent"`
}

func (p statusPayload) toDownload() Download {
	download := Download{
		GID:    p.GID,
		Status: p.Status,
	}
	for _, file := range p.Files {
		if file.Path == "" {
			continue
		}
		path := file.Path
		if !filepath.IsAbs(path) && p.Dir != "" {
			path = filepath.Join(p.Dir, path)
		}
		download.Files = append(download.Files, path)
	}
	download.Name = strings.TrimSpace(p.Bittorrent.Info.Name)
	if download.Name == "" && len(download.Files) > 0 {
		download.Name = filepath.Base(download.Files[0])
	}
	return download
}

type eventPayload struct {
	GID string `json:"gid"`
}
