package image

import "errors"

// The archive could not be read as an OCI image.
var ErrArchive = errors.New("image archive unreadable")

// The archive does not match its descriptor.
var ErrVerification = errors.New("verification failed")
