package model

type DownloadRequest struct {
	URL string `json:"url"`
}

type DownloadResult struct {
	FileName string `json:"fileName"`
	FileSize string `json:"fileSize"`
}

// ProgressSample is reported once per received chunk. TotalBytes is 0 when
// the size of the stream is unknown.
type ProgressSample struct {
	BytesDownloaded int64 `json:"bytesDownloaded"`
	TotalBytes      int64 `json:"totalBytes"`
}

// Percent returns the completed share in [0, 100], or -1 if the total is unknown.
func (p ProgressSample) Percent() float64 {
	if p.TotalBytes <= 0 {
		return -1
	}
	return float64(p.BytesDownloaded) / float64(p.TotalBytes) * 100
}

type ProgressFunc func(ProgressSample)
