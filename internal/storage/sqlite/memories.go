package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sandevgo/chainbot/internal/core"
	"github.com/sandevgo/chainbot/pkg/log"
)

// MemoriesRepo is the local fallback memory store used when no remote
// memory service is configured. Search is keyword matching, not
// semantic: good enough for recall on a single machine.
type MemoriesRepo struct {
	db *sql.DB
}

func NewMemoriesRepo(db *sql.DB) *MemoriesRepo {
	return &MemoriesRepo{db: db}
}

func (r *MemoriesRepo) Available() bool {
	return r.db != nil
}

func (r *MemoriesRepo) Add(ctx context.Context, messages []core.Message, userID string, metadata map[string]any) error {
	content := summarize(messages)
	if content == "" {
		return nil
	}

	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	query := `INSERT INTO memories (id, user_id, content, metadata, created_at) VALUES (?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		uuid.NewString(), userID, content, string(metaJSON), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to insert memory: %w", err)
	}
	return nil
}

func (r *MemoriesRepo) Search(ctx context.Context, query, userID string, limit int) ([]core.MemoryRecord, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil, nil
	}

	conds := make([]string, 0, len(terms))
	args := []any{userID}
	for _, term := range terms {
		conds = append(conds, "instr(lower(content), ?) > 0")
		args = append(args, term)
	}

	// Any-term match; score is computed per row below.
	sqlQuery := fmt.Sprintf(
		`SELECT id, content, metadata, created_at FROM memories WHERE user_id = ? AND (%s) ORDER BY created_at DESC LIMIT ?`,
		strings.Join(conds, " OR "))
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query memories: %w", err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}

	for i := range records {
		records[i].Score = matchScore(records[i].Content, terms)
	}

	log.FromCtx(ctx).Debug().Int("count", len(records)).Str("query", query).Msg("local memory search")
	return records, nil
}

func (r *MemoriesRepo) List(ctx context.Context, userID string, page, pageSize int) ([]core.MemoryRecord, error) {
	if page < 1 {
		page = 1
	}

	query := `SELECT id, content, metadata, created_at FROM memories WHERE user_id = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`
	rows, err := r.db.QueryContext(ctx, query, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list memories: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (r *MemoriesRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete memory: %w", err)
	}
	return nil
}

func (r *MemoriesRepo) BatchDelete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	query := fmt.Sprintf(`DELETE FROM memories WHERE id IN (%s)`, placeholders)
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to batch delete memories: %w", err)
	}
	return nil
}

func scanRecords(rows *sql.Rows) ([]core.MemoryRecord, error) {
	var records []core.MemoryRecord
	for rows.Next() {
		var rec core.MemoryRecord
		var metaStr sql.NullString

		if err := rows.Scan(&rec.ID, &rec.Content, &metaStr, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan memory: %w", err)
		}

		if metaStr.Valid && metaStr.String != "" {
			if err := json.Unmarshal([]byte(metaStr.String), &rec.Metadata); err != nil {
				rec.Metadata = nil
			}
		}

		records = append(records, rec)
	}
	return records, rows.Err()
}

// matchScore is the fraction of query terms present in the content.
func matchScore(content string, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}

	lower := strings.ToLower(content)
	hits := 0
	for _, term := range terms {
		if strings.Contains(lower, term) {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}

// summarize folds a message pair into one stored memory line.
func summarize(messages []core.Message) string {
	var lastUser, lastAssistant string
	for _, m := range messages {
		switch m.Role {
		case core.RoleUser:
			lastUser = m.Text()
		case core.RoleAssistant:
			lastAssistant = m.Text()
		}
	}

	var parts []string
	if lastUser != "" {
		parts = append(parts, "User asked: "+clip(lastUser, 200))
	}
	if lastAssistant != "" {
		parts = append(parts, "Assistant responded: "+clip(lastAssistant, 200))
	}
	return strings.Join(parts, " | ")
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
