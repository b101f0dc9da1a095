package camera

// Camera is one registered video source. The JSON field names are the
// on-disk and API format.
type Camera struct {
	Name      string `json:"cam_name"`
	SourceURL string `json:"rtsp_url"`
	Sequence  int    `json:"sequence"`
	Active    bool   `json:"active"`
	// StreamURL is derived from the base URL and the camera name; clients
	// never set it.
	StreamURL string `json:"stream_url"`
}

// Registry is the full, ordered set of cameras. It is always persisted as a
// complete snapshot.
type Registry struct {
	Data []Camera `json:"data"`
}

// Clone returns a copy that shares no memory with r.
func (r Registry) Clone() Registry {
	data := make([]Camera, len(r.Data))
	copy(data, r.Data)
	return Registry{Data: data}
}
