// Package source fetches the current set of access-log records from an external
// collaborator.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"

	"logwatch/pkg/config"
	"logwatch/pkg/models"
)

var (
	ErrBadStatus = errors.New("log source returned non-success status")
	ErrDecode    = errors.New("failed to decode log records")
)

// Source returns the full current record set on every call.
type Source interface {
	Fetch(ctx context.Context) ([]models.LogRecord, error)
}

// New builds the Source selected by cfg.Source.Kind.
func New(cfg *config.Config) (Source, error) {
	sc := cfg.Source
	switch sc.Kind {
	case config.SourceHTTP:
		return NewHTTP(sc.URL, sc.Timeout), nil

	case config.SourceElastic:
		return NewElastic(elasticsearch.Config{
			Addresses: sc.ElasticSearchNodes,
			Username:  cfg.Secrets.ESUsername,
			Password:  cfg.Secrets.ESPassword,
		}, sc.ElasticSearchIndex, sc.Size)

	case config.SourceFile:
		return NewFile(sc.Path), nil
	}

	return nil, fmt.Errorf("unknown source kind %q", sc.Kind)
}
