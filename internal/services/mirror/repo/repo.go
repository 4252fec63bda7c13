// Package repo provides the mirror repository implementation
package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"issuemirror/internal/modkit/repokit"
	"issuemirror/internal/platform/store"
	"issuemirror/internal/services/mirror/domain"
)

type (
	pg     struct{ q repokit.Queryer }
	binder struct{}
)

// NewPG constructs a new repo binder for Postgres
func NewPG() repokit.Binder[Storage] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) Storage { return &pg{q: q} }

// Storage defines the mirror repository
type Storage interface {
	// MaxRemoteUpdated returns the sync cursor, found=false when no rows exist
	MaxRemoteUpdated(ctx context.Context, repo domain.RepoRef) (time.Time, bool, error)
	// LastLocalWrite returns the newest local write timestamp for staleness checks
	LastLocalWrite(ctx context.Context, repo domain.RepoRef) (time.Time, bool, error)
	// ExistingUpdatedByNumber maps issue number to stored remote_updated_at,
	// restricted to the given numbers
	ExistingUpdatedByNumber(ctx context.Context, repo domain.RepoRef, numbers []int) (map[int]time.Time, error)

	UpsertAuthors(ctx context.Context, xs []domain.RemoteAuthor) error
	AuthorIDsByRemote(ctx context.Context, remoteIDs []int64) (map[int64]int64, error)
	UpsertIssues(ctx context.Context, rows []domain.Issue) (int64, error)

	CountIssues(ctx context.Context, repo domain.RepoRef, state string) (int64, error)
	ListIssues(ctx context.Context, q domain.ListQuery) ([]domain.Issue, error)

	RecomputeStat(ctx context.Context, repo domain.RepoRef) (domain.RepoStat, error)
	GetStat(ctx context.Context, repo domain.RepoRef) (domain.RepoStat, error)
}

func (s *pg) MaxRemoteUpdated(ctx context.Context, repo domain.RepoRef) (time.Time, bool, error) {
	var ts *time.Time
	err := s.q.QueryRow(ctx,
		`SELECT MAX(remote_updated_at) FROM issues WHERE owner = $1 AND repo = $2`,
		repo.Owner, repo.Name,
	).Scan(&ts)
	if err != nil {
		return time.Time{}, false, err
	}
	if ts == nil {
		return time.Time{}, false, nil
	}
	return ts.UTC(), true, nil
}

func (s *pg) LastLocalWrite(ctx context.Context, repo domain.RepoRef) (time.Time, bool, error) {
	var ts *time.Time
	err := s.q.QueryRow(ctx,
		`SELECT MAX(updated_at) FROM issues WHERE owner = $1 AND repo = $2`,
		repo.Owner, repo.Name,
	).Scan(&ts)
	if err != nil {
		return time.Time{}, false, err
	}
	if ts == nil {
		return time.Time{}, false, nil
	}
	return ts.UTC(), true, nil
}

func (s *pg) ExistingUpdatedByNumber(
	ctx context.Context,
	repo domain.RepoRef,
	numbers []int,
) (map[int]time.Time, error) {
	out := make(map[int]time.Time, len(numbers))
	if len(numbers) == 0 {
		return out, nil
	}
	nums := make([]int64, len(numbers))
	for i, n := range numbers {
		nums[i] = int64(n)
	}
	rows, err := s.q.Query(ctx,
		`SELECT number, remote_updated_at FROM issues
		 WHERE owner = $1 AND repo = $2 AND number = ANY($3)`,
		repo.Owner, repo.Name, nums,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var n int
		var ts time.Time
		if err := rows.Scan(&n, &ts); err != nil {
			return nil, err
		}
		out[n] = ts.UTC()
	}
	return out, rows.Err()
}

// UpsertAuthors inserts or refreshes authors keyed by remote id
func (s *pg) UpsertAuthors(ctx context.Context, xs []domain.RemoteAuthor) error {
	if len(xs) == 0 {
		return nil
	}
	var sb strings.Builder
	sb.WriteString(`INSERT INTO authors
		(remote_id, login, avatar_url, kind, profile_url, created_at, updated_at) VALUES `)

	now := time.Now().UTC()
	args := make([]any, 0, len(xs)*6)
	for i, a := range xs {
		if i > 0 {
			sb.WriteByte(',')
		}
		base := i*6 + 1
		fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base, base+1, base+2, base+3, base+4, base+5, base+5)
		args = append(args, a.RemoteID, a.Login, a.AvatarURL, a.Kind, a.ProfileURL, now)
	}
	sb.WriteString(` ON CONFLICT (remote_id) DO UPDATE SET
		login = EXCLUDED.login,
		avatar_url = EXCLUDED.avatar_url,
		kind = EXCLUDED.kind,
		profile_url = EXCLUDED.profile_url,
		updated_at = EXCLUDED.updated_at`)
	_, err := s.q.Exec(ctx, sb.String(), args...)
	return err
}

func (s *pg) AuthorIDsByRemote(ctx context.Context, remoteIDs []int64) (map[int64]int64, error) {
	out := make(map[int64]int64, len(remoteIDs))
	if len(remoteIDs) == 0 {
		return out, nil
	}
	rows, err := s.q.Query(ctx,
		`SELECT remote_id, id FROM authors WHERE remote_id = ANY($1)`, remoteIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var remote, local int64
		if err := rows.Scan(&remote, &local); err != nil {
			return nil, err
		}
		out[remote] = local
	}
	return out, rows.Err()
}

// UpsertIssues writes rows keyed by the natural key, updating every
// non-identity column on conflict. The update only fires when the incoming
// remote_updated_at is strictly newer, a concurrent stale run cannot
// regress a row. Returns rows affected
func (s *pg) UpsertIssues(ctx context.Context, rows []domain.Issue) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	var sb strings.Builder
	sb.WriteString(`INSERT INTO issues
		(owner, repo, number, title, body, state, author_id,
		remote_created_at, remote_updated_at, created_at, updated_at) VALUES `)

	args := make([]any, 0, len(rows)*11)
	for i, r := range rows {
		if i > 0 {
			sb.WriteByte(',')
		}
		base := i*11 + 1
		fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d)",
			base, base+1, base+2, base+3, base+4, base+5,
			base+6, base+7, base+8, base+9, base+10)
		args = append(args,
			r.Owner, r.Repo, r.Number, r.Title, r.Body, r.State, r.AuthorID,
			r.RemoteCreatedAt, r.RemoteUpdatedAt, r.CreatedAt, r.UpdatedAt,
		)
	}
	sb.WriteString(` ON CONFLICT (owner, repo, number) DO UPDATE SET
		title = EXCLUDED.title,
		body = EXCLUDED.body,
		state = EXCLUDED.state,
		author_id = EXCLUDED.author_id,
		remote_created_at = EXCLUDED.remote_created_at,
		remote_updated_at = EXCLUDED.remote_updated_at,
		updated_at = EXCLUDED.updated_at
		WHERE issues.remote_updated_at < EXCLUDED.remote_updated_at`)

	tag, err := s.q.Exec(ctx, sb.String(), args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *pg) CountIssues(ctx context.Context, repo domain.RepoRef, state string) (int64, error) {
	if state == "" {
		return store.Scalar[int64](ctx, s.q,
			`SELECT COUNT(*) FROM issues WHERE owner = $1 AND repo = $2`,
			repo.Owner, repo.Name,
		)
	}
	return store.Scalar[int64](ctx, s.q,
		`SELECT COUNT(*) FROM issues WHERE owner = $1 AND repo = $2 AND state = $3`,
		repo.Owner, repo.Name, state,
	)
}

func (s *pg) ListIssues(ctx context.Context, q domain.ListQuery) ([]domain.Issue, error) {
	var sb strings.Builder
	var args []any
	arg := func(v any) string { args = append(args, v); return fmt.Sprintf("$%d", len(args)) }

	sb.WriteString(`
		SELECT
			i.id, i.owner, i.repo, i.number, i.title, i.body, i.state,
			i.author_id, COALESCE(a.login, ''),
			i.remote_created_at, i.remote_updated_at, i.created_at, i.updated_at
		FROM issues i
		LEFT JOIN authors a ON a.id = i.author_id
		WHERE i.owner = ` + arg(q.Repo.Owner) + ` AND i.repo = ` + arg(q.Repo.Name) + `
	`)
	if q.State != "" {
		sb.WriteString("  AND i.state = " + arg(q.State) + "\n")
	}
	offset := (q.Page - 1) * q.PageSize
	sb.WriteString(`ORDER BY i.remote_created_at DESC, i.number DESC
		LIMIT ` + arg(q.PageSize) + ` OFFSET ` + arg(offset))

	return store.Many(ctx, s.q, scanIssue, sb.String(), args...)
}

func scanIssue(r store.Row) (domain.Issue, error) {
	var x domain.Issue
	err := r.Scan(
		&x.ID, &x.Owner, &x.Repo, &x.Number, &x.Title, &x.Body, &x.State,
		&x.AuthorID, &x.AuthorLogin,
		&x.RemoteCreatedAt, &x.RemoteUpdatedAt, &x.CreatedAt, &x.UpdatedAt,
	)
	return x, err
}

// RecomputeStat recounts atomically so concurrent recomputes for the same
// repository cannot lose updates
func (s *pg) RecomputeStat(ctx context.Context, repo domain.RepoRef) (domain.RepoStat, error) {
	return store.One(ctx, s.q, scanStat, `
		INSERT INTO repo_stats (provider, owner, repo, issues_count, recomputed_at)
		VALUES ($1, $2, $3,
			(SELECT COUNT(*) FROM issues WHERE owner = $2 AND repo = $3),
			now())
		ON CONFLICT (provider, owner, repo) DO UPDATE SET
			issues_count = EXCLUDED.issues_count,
			recomputed_at = EXCLUDED.recomputed_at
		RETURNING provider, owner, repo, issues_count, recomputed_at`,
		domain.Provider, repo.Owner, repo.Name,
	)
}

func (s *pg) GetStat(ctx context.Context, repo domain.RepoRef) (domain.RepoStat, error) {
	return store.One(ctx, s.q, scanStat,
		`SELECT provider, owner, repo, issues_count, recomputed_at
		 FROM repo_stats WHERE provider = $1 AND owner = $2 AND repo = $3`,
		domain.Provider, repo.Owner, repo.Name,
	)
}

func scanStat(r store.Row) (domain.RepoStat, error) {
	var x domain.RepoStat
	err := r.Scan(&x.Provider, &x.Owner, &x.Repo, &x.IssuesCount, &x.RecomputedAt)
	return x, err
}
