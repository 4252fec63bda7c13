package github

import (
	"context"

	"issuemirror/internal/services/mirror/domain"
)

// Source adapts Client to the mirror domain's SourcePort
type Source struct {
	c *Client
}

// NewSource wraps a Client as a domain issue source
func NewSource(c *Client) *Source { return &Source{c: c} }

// FetchIssues implements domain.SourcePort
func (s *Source) FetchIssues(
	ctx context.Context,
	repo domain.RepoRef,
	opt domain.FetchOptions,
) ([]domain.RemoteIssue, domain.PageHandle, error) {
	raw, next, err := s.c.ListIssues(ctx, repo.Owner, repo.Name, ListOptions{
		State:     opt.State,
		Sort:      opt.Sort,
		Direction: opt.Direction,
		Since:     opt.Since,
		Page:      opt.Page,
		PerPage:   opt.PerPage,
	})
	if err != nil {
		return nil, "", err
	}
	return toRemote(raw), domain.PageHandle(next), nil
}

// FetchPage implements domain.SourcePort
func (s *Source) FetchPage(
	ctx context.Context,
	handle domain.PageHandle,
) ([]domain.RemoteIssue, domain.PageHandle, error) {
	raw, next, err := s.c.FetchPage(ctx, string(handle))
	if err != nil {
		return nil, "", err
	}
	return toRemote(raw), domain.PageHandle(next), nil
}

func toRemote(raw []Issue) []domain.RemoteIssue {
	out := make([]domain.RemoteIssue, 0, len(raw))
	for _, is := range raw {
		x := domain.RemoteIssue{
			Number:    is.Number,
			Title:     is.Title,
			Body:      is.Body,
			State:     is.State,
			CreatedAt: is.CreatedAt,
			UpdatedAt: is.UpdatedAt,
		}
		if is.User != nil {
			x.Author = &domain.RemoteAuthor{
				RemoteID:   is.User.ID,
				Login:      is.User.Login,
				AvatarURL:  is.User.AvatarURL,
				Kind:       is.User.Type,
				ProfileURL: is.User.URL,
			}
		}
		out = append(out, x)
	}
	return out
}
