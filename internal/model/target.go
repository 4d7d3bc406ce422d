package model

import (
	"errors"
	"fmt"
	"path/filepath"
)

var (
	ErrEmptyPath    = errors.New("path is empty")
	ErrRelativePath = errors.New("path is not absolute")
	ErrSamePath     = errors.New("source and destination are the same file")
)

// WatchTarget is the pair of files the bridge connects. It is built once
// at startup and never changes afterwards.
type WatchTarget struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// NewWatchTarget resolves src and dst to clean absolute paths and rejects
// empty or identical ones.
func NewWatchTarget(src, dst string) (WatchTarget, error) {
	absSrc, err := resolve(src)
	if err != nil {
		return WatchTarget{}, fmt.Errorf("invalid source path: %w", err)
	}

	absDst, err := resolve(dst)
	if err != nil {
		return WatchTarget{}, fmt.Errorf("invalid destination path: %w", err)
	}

	t := WatchTarget{Source: absSrc, Destination: absDst}
	if err := t.Validate(); err != nil {
		return WatchTarget{}, err
	}

	return t, nil
}

func (t WatchTarget) Validate() error {
	switch {
	case t.Source == "" || t.Destination == "":
		return ErrEmptyPath
	case !filepath.IsAbs(t.Source) || !filepath.IsAbs(t.Destination):
		return ErrRelativePath
	case samePath(t.Source, t.Destination):
		return fmt.Errorf("%w: %s", ErrSamePath, t.Source)
	}

	return nil
}

// WatchDir is the directory the detector subscribes to.
func (t WatchTarget) WatchDir() string {
	return filepath.Dir(t.Source)
}

func resolve(path string) (string, error) {
	if path == "" {
		return "", ErrEmptyPath
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	return filepath.Clean(abs), nil
}

// IsSource reports whether path names the source file. path must already be
// absolute and clean.
func (t WatchTarget) IsSource(path string) bool {
	return samePath(path, t.Source)
}
