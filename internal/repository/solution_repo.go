package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/codev-api/internal/db"
	"github.com/oggyb/codev-api/internal/utils/pagination"
)

// SolutionOrder selects the sort key of a solution listing.
type SolutionOrder string

const (
	SolutionOrderID        SolutionOrder = "ID_ASC"
	SolutionOrderMostLiked SolutionOrder = "MOST_LIKED"
)

// ParseSolutionOrder accepts a policy name case-insensitively. Empty means ID_ASC.
func ParseSolutionOrder(s string) (SolutionOrder, bool) {
	switch o := SolutionOrder(strings.ToUpper(strings.TrimSpace(s))); o {
	case "":
		return SolutionOrderID, true
	case SolutionOrderID, SolutionOrderMostLiked:
		return o, true
	}
	return "", false
}

func (o SolutionOrder) clause() string {
	if o == SolutionOrderMostLiked {
		return "likes DESC, s.id ASC"
	}
	return "s.id ASC"
}

// SolutionRow is a solution with its engagement computed for one viewer.
type SolutionRow struct {
	ID              uuid.UUID
	ChallengeID     uuid.UUID
	AuthorID        uuid.UUID
	AuthorName      string
	AuthorEmail     string
	AuthorGithubURL string
	RepositoryURL   string
	DeployURL       string
	Likes           int64
	Liked           bool
}

// SolutionRepository provides data access methods for the Solution model.
type SolutionRepository struct {
	db *gorm.DB
}

// NewSolutionRepository creates a new repository bound to the given DB connection.
func NewSolutionRepository(database *gorm.DB) *SolutionRepository {
	return &SolutionRepository{db: database}
}

func (r *SolutionRepository) Create(ctx context.Context, s *db.Solution) error {
	return r.db.WithContext(ctx).Create(s).Error
}

func (r *SolutionRepository) FindByID(ctx context.Context, id uuid.UUID) (*db.Solution, error) {
	var s db.Solution
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

// FindOwnedForUpdate locks the solution row only when it belongs to authorID.
// A solution owned by someone else is indistinguishable from a missing one.
func (r *SolutionRepository) FindOwnedForUpdate(ctx context.Context, id, authorID uuid.UUID) (*db.Solution, error) {
	var s db.Solution
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&s, "id = ? AND author_id = ?", id, authorID).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Delete removes the solution row when (id, authorID) match and reports
// whether a row was removed. Like rows must already be gone.
func (r *SolutionRepository) Delete(ctx context.Context, id, authorID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&db.Solution{}, "id = ? AND author_id = ?", id, authorID)
	return res.RowsAffected > 0, res.Error
}

// ListForChallenge returns one page of a challenge's solutions with engagement.
//
// Behavior:
//   - likes counts distinct likers, the author's own like included.
//   - liked is true only when viewerID liked the solution AND viewerID is not
//     its author.
//   - Grouped by solution and author; offset = page * size, limit = size.
func (r *SolutionRepository) ListForChallenge(
	ctx context.Context,
	challengeID, viewerID uuid.UUID,
	page pagination.Page,
	order SolutionOrder,
) ([]SolutionRow, error) {
	var rows []SolutionRow
	err := r.engagementQuery(ctx, viewerID).
		Where("s.challenge_id = ?", challengeID).
		Order(order.clause()).
		Offset(page.Offset()).
		Limit(page.Limit()).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindRow returns a single solution with engagement for viewerID.
func (r *SolutionRepository) FindRow(ctx context.Context, solutionID, viewerID uuid.UUID) (*SolutionRow, error) {
	var rows []SolutionRow
	err := r.engagementQuery(ctx, viewerID).
		Where("s.id = ?", solutionID).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &rows[0], nil
}

func (r *SolutionRepository) engagementQuery(ctx context.Context, viewerID uuid.UUID) *gorm.DB {
	// viewer liked it, and is not the author
	likedByViewer := r.db.
		Table("likes l2").
		Select("1").
		Where("l2.solution_id = s.id AND l2.participant_id = ? AND l2.participant_id <> s.author_id", viewerID)

	return r.db.WithContext(ctx).
		Table("solutions s").
		Select(`s.id, s.challenge_id, s.author_id,
			u.name AS author_name, u.email AS author_email, u.github_url AS author_github_url,
			s.repository_url, s.deploy_url,
			COUNT(DISTINCT l.participant_id) AS likes,
			EXISTS (?) AS liked`, likedByViewer).
		Joins("JOIN users u ON u.id = s.author_id").
		Joins("LEFT JOIN likes l ON l.solution_id = s.id").
		Group("s.id, s.challenge_id, s.author_id, u.name, u.email, u.github_url, s.repository_url, s.deploy_url")
}
