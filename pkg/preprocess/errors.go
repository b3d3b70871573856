package preprocess

import "errors"

var (
	// ErrImageRead indicates the image URI could not be resolved or read.
	ErrImageRead = errors.New("image could not be read")
	// ErrImageDecode indicates the image bytes are not a decodable image.
	ErrImageDecode = errors.New("image could not be decoded")
	// ErrInvalidShape indicates a target tensor shape the preprocessor cannot fill.
	ErrInvalidShape = errors.New("invalid tensor shape")
)
