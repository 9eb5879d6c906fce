// Package services holds the business logic between handlers and repositories.
package services

import (
	"context"
	"io"
	"strings"

	"github.com/dxsocial/backend/internal/models"
	"github.com/dxsocial/backend/pkg/ipfs"
	"github.com/sirupsen/logrus"
)

// Notifier delivers a notification. Failures are logged, never returned.
type Notifier interface {
	Notify(ctx context.Context, n *models.Notification)
}

// ContentStore pins content to IPFS and reads it back.
type ContentStore interface {
	AddFile(ctx context.Context, name string, r io.Reader) (string, error)
	AddJSON(ctx context.Context, v interface{}) (string, error)
	GetJSON(ctx context.Context, uri string, out interface{}) error
}

// Upload is one file of a multipart request.
type Upload struct {
	Name     string
	MimeType string
	Data     io.Reader
}

// pin uploads files and returns them as post media.
func pin(ctx context.Context, content ContentStore, files []Upload) ([]models.Media, error) {
	media := make([]models.Media, 0, len(files))
	for _, f := range files {
		uri, err := content.AddFile(ctx, f.Name, f.Data)
		if err != nil {
			return nil, err
		}
		media = append(media, models.Media{
			Type:     ipfs.MediaType(f.MimeType),
			URI:      uri,
			MimeType: f.MimeType,
		})
	}
	return media, nil
}

func mediaURIs(media []models.Media) []string {
	uris := make([]string, 0, len(media))
	for _, m := range media {
		uris = append(uris, m.URI)
	}
	return uris
}

// authorStore loads the users embedded as author details.
type authorStore interface {
	GetUsersByAddresses(ctx context.Context, addresses []string) (map[string]*models.User, error)
}

// userCounters is the user store of services that only bump profile counters.
type userCounters interface {
	authorStore
	IncCounter(ctx context.Context, address, field string, delta int64) error
}

// authors resolves wallet addresses into the embedded author summary.
type authors struct {
	users   authorStore
	gateway string
}

func (a authors) details(ctx context.Context, addresses []string) map[string]*models.AuthorDetails {
	out := make(map[string]*models.AuthorDetails, len(addresses))
	users, err := a.users.GetUsersByAddresses(ctx, unique(addresses))
	if err != nil {
		logrus.WithError(err).Warn("Failed to load author details")
		return out
	}
	for addr, u := range users {
		out[addr] = &models.AuthorDetails{
			Username:   u.Username,
			AvatarURI:  ipfs.ToGatewayURL(u.AvatarURI, a.gateway),
			IsVerified: u.IsVerified,
		}
	}
	return out
}

func unique(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// cleanTags lowercases, trims and de-duplicates tags, dropping a leading '#'.
func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(t), "#"))
		out = append(out, t)
	}
	return unique(out)
}

func subscriptionCacheKey(address string) string {
	return "subscription:" + address
}

func balanceCacheKey(address string) string {
	return "balance:" + address
}
