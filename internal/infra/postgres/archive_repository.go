package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"quiz-ranking-service/internal/domain"
	"github.com/uptrace/bun"
)

type rankingEntryModel struct {
	bun.BaseModel `bun:"table:challenge_rankings"`

	ChallengeID string    `bun:"challenge_id,pk"`
	UserID      string    `bun:"user_id,pk"`
	Nickname    string    `bun:"nickname"`
	Rank        int       `bun:"rank"`
	Score       float64   `bun:"score"`
	PlayTime    float64   `bun:"play_time"`
	CreatedAt   time.Time `bun:"created_at"`
}

// ArchiveRepository persists frozen rankings via bun. Only the snapshot
// finalizer writes here; rows are immutable outside ReplaceEntries.
type ArchiveRepository struct {
	db *bun.DB
}

func NewArchiveRepository(db *bun.DB) *ArchiveRepository {
	return &ArchiveRepository{db: db}
}

// ReplaceEntries swaps the whole archive for a challenge inside one
// transaction, so concurrent finalizes race cleanly and readers never see
// a partially-emptied archive.
func (r *ArchiveRepository) ReplaceEntries(ctx context.Context, challengeID string, entries []domain.RankingEntry) error {
	models := make([]rankingEntryModel, len(entries))
	for i, entry := range entries {
		models[i] = rankingEntryModel{
			ChallengeID: entry.ChallengeID,
			UserID:      entry.UserID,
			Nickname:    entry.Nickname,
			Rank:        entry.Rank,
			Score:       entry.Score,
			PlayTime:    entry.PlayTime,
			CreatedAt:   entry.CreatedAt,
		}
	}

	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*rankingEntryModel)(nil)).
			Where("challenge_id = ?", challengeID).
			Exec(ctx); err != nil {
			return err
		}
		if len(models) == 0 {
			return nil
		}
		_, err := tx.NewInsert().Model(&models).Exec(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("replace ranking entries: %w", err)
	}
	return nil
}

func (r *ArchiveRepository) ListEntries(ctx context.Context, challengeID string, limit int) ([]domain.RankingEntry, error) {
	var models []rankingEntryModel
	query := r.db.NewSelect().
		Model(&models).
		Where("challenge_id = ?", challengeID).
		Order("rank ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list ranking entries: %w", err)
	}

	entries := make([]domain.RankingEntry, len(models))
	for i, model := range models {
		entries[i] = entryFromModel(model)
	}
	return entries, nil
}

func (r *ArchiveRepository) FindEntry(ctx context.Context, challengeID, userID string) (domain.RankingEntry, error) {
	var model rankingEntryModel
	err := r.db.NewSelect().
		Model(&model).
		Where("challenge_id = ?", challengeID).
		Where("user_id = ?", userID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RankingEntry{}, domain.ErrSubmissionNotFound
	}
	if err != nil {
		return domain.RankingEntry{}, fmt.Errorf("find ranking entry: %w", err)
	}
	return entryFromModel(model), nil
}

func (r *ArchiveRepository) HasEntries(ctx context.Context, challengeID string) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*rankingEntryModel)(nil)).
		Where("challenge_id = ?", challengeID).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("check ranking entries: %w", err)
	}
	return exists, nil
}

func entryFromModel(model rankingEntryModel) domain.RankingEntry {
	return domain.RankingEntry{
		ChallengeID: model.ChallengeID,
		UserID:      model.UserID,
		Nickname:    model.Nickname,
		Rank:        model.Rank,
		Score:       model.Score,
		PlayTime:    model.PlayTime,
		CreatedAt:   model.CreatedAt,
	}
}
