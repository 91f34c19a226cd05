package build

import "errors"

var (
	ErrBuild               = errors.New("build failed")
	ErrFileSystemOperation = errors.New("file system operation failed")
	ErrBaseResolve         = errors.New("base image resolution failed")
	ErrDependencyInstall   = errors.New("dependency installation failed")
	ErrCopy                = errors.New("context copy failed")
)
