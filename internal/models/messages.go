package models

import "encoding/json"

// LinkRequest is the message that starts a link session.
type LinkRequest struct {
	Confirm     bool     `json:"confirm"`
	Sources     []string `json:"sources"`
	Destination string   `json:"destination"`
}

// UnmarshalJSON accepts both the current field names and the ones sent by
// the original web client (link, src_files, dst_path).
func (r *LinkRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		Confirm     *bool    `json:"confirm"`
		Link        *bool    `json:"link"`
		Sources     []string `json:"sources"`
		SrcFiles    []string `json:"src_files"`
		Destination string   `json:"destination"`
		DstPath     string   `json:"dst_path"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = LinkRequest{
		Sources:     raw.Sources,
		Destination: raw.Destination,
	}
	switch {
	case raw.Confirm != nil:
		r.Confirm = *raw.Confirm
	case raw.Link != nil:
		r.Confirm = *raw.Link
	}
	if r.Sources == nil {
		r.Sources = raw.SrcFiles
	}
	if r.Destination == "" {
		r.Destination = raw.DstPath
	}
	return nil
}

// Entry types reported in DirEntry.Type.
const (
	TypeDirectory = "directory"
	TypeFile      = "file"
)

// DirEntry is one row of a directory listing.
type DirEntry struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Path string `json:"path"`
	Size string `json:"size"`
}

// DefaultDirResponse answers GET /api/default_dir.
type DefaultDirResponse struct {
	Dir string `json:"dir"`
}

// ErrorResponse is the body of every 4xx/5xx API response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
