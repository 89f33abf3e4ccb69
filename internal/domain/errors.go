package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownSession         = errors.New("unknown session")
	ErrSessionAlreadyConsumed = errors.New("session already consumed")
	ErrModelNotLoaded         = errors.New("recommendation model not loaded")
	ErrInsufficientCandidates = errors.New("no candidates left after excluding offered songs")
)

const (
	MinStars = 1
	MaxStars = 5
)

type InvalidRatingError struct {
	Stars int
}

func (e *InvalidRatingError) Error() string {
	return fmt.Sprintf("invalid rating %d: stars must be between %d and %d", e.Stars, MinStars, MaxStars)
}

type UnknownSongError struct {
	SongID string
}

func (e *UnknownSongError) Error() string {
	return fmt.Sprintf("song %q was not offered in this session", e.SongID)
}

type CatalogTooSmallError struct {
	Eligible int
	Required int
}

func (e *CatalogTooSmallError) Error() string {
	return fmt.Sprintf("catalog has %d eligible songs, need %d", e.Eligible, e.Required)
}

// TrainingDataError reports raw catalog data the training pipeline refuses to fit.
type TrainingDataError struct {
	Msg    string
	SongID string
	Column string
}

func (e *TrainingDataError) Error() string {
	switch {
	case e.SongID != "" && e.Column != "":
		return fmt.Sprintf("training data: song %q column %s: %s", e.SongID, e.Column, e.Msg)
	case e.SongID != "":
		return fmt.Sprintf("training data: song %q: %s", e.SongID, e.Msg)
	case e.Column != "":
		return fmt.Sprintf("training data: column %s: %s", e.Column, e.Msg)
	}
	return "training data: " + e.Msg
}

// ArtifactError reports a persisted model set that cannot be loaded.
type ArtifactError struct {
	File string
	Msg  string
	Err  error
}

func (e *ArtifactError) Error() string {
	msg := e.Msg
	if e.File != "" {
		msg = e.File + ": " + msg
	}
	if e.Err != nil {
		return "artifact " + msg + ": " + e.Err.Error()
	}
	return "artifact " + msg
}

func (e *ArtifactError) Unwrap() error {
	return e.Err
}

func IsInvalidRatingError(err error) bool {
	var target *InvalidRatingError
	return errors.As(err, &target)
}

func IsUnknownSongError(err error) bool {
	var target *UnknownSongError
	return errors.As(err, &target)
}

func IsCatalogTooSmallError(err error) bool {
	var target *CatalogTooSmallError
	return errors.As(err, &target)
}

func IsTrainingDataError(err error) bool {
	var target *TrainingDataError
	return errors.As(err, &target)
}

func IsArtifactError(err error) bool {
	var target *ArtifactError
	return errors.As(err, &target)
}
