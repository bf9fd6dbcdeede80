package model

// Asset describes an object offloaded to S3.
type Asset struct {
	Bucket string `json:"bucket"`
	S3Key  string `json:"s3_key"`
	ETag   string `json:"etag"`
	SHA256 string `json:"sha256"`
	MIME   string `json:"mime"`
	SizeB  int64  `json:"size_b"`
}

// Empty reports whether the asset points at nothing.
func (a Asset) Empty() bool { return a.S3Key == "" }
