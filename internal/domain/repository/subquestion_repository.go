package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"qna_catalog/internal/common"
	"qna_catalog/internal/domain/model"
)

type SubQuestionRepository interface {
	Create(ctx context.Context, tx *sql.Tx, sq *model.SubQuestion) error
	FindByID(ctx context.Context, id int64) (*model.SubQuestion, error)
	ListByParentQuestion(ctx context.Context, questionID int64) ([]model.SubQuestion, error)
	ListByParentSubQuestions(ctx context.Context, parentIDs []int64) ([]model.SubQuestion, error)
	Update(ctx context.Context, tx *sql.Tx, sq *model.SubQuestion) error
	Delete(ctx context.Context, tx *sql.Tx, id int64) error
	CountChildren(ctx context.Context, tx *sql.Tx, subQuestionID int64) (int, error)
}

type pgSubQuestionRepository struct {
	db *sql.DB
}

func NewPgSubQuestionRepository(db *sql.DB) SubQuestionRepository {
	return &pgSubQuestionRepository{db: db}
}

const subQuestionColumns = `id, text, answer, number, count, depth, category_id, subcategory_id,
       parent_question_id, parent_subquestion_id, author, author_edit, created_at, updated_at`

func scanSubQuestion(row interface{ Scan(dest ...any) error }, sq *model.SubQuestion) error {
	return row.Scan(
		&sq.ID, &sq.Text, &sq.Answer, &sq.Number, &sq.Count, &sq.Depth,
		&sq.CategoryID, &sq.SubcategoryID, &sq.ParentQuestionID, &sq.ParentSubQuestionID,
		&sq.Author, &sq.AuthorEdit, &sq.CreatedAt, &sq.UpdatedAt,
	)
}

func (r *pgSubQuestionRepository) Create(ctx context.Context, tx *sql.Tx, sq *model.SubQuestion) error {
	query := `INSERT INTO sub_questions (text, answer, number, count, depth, category_id, subcategory_id,
	                                     parent_question_id, parent_subquestion_id, author)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	          RETURNING id, created_at, updated_at`

	var row *sql.Row
	if tx != nil {
		row = tx.QueryRowContext(ctx, query, sq.Text, sq.Answer, sq.Number, sq.Count, sq.Depth,
			sq.CategoryID, sq.SubcategoryID, sq.ParentQuestionID, sq.ParentSubQuestionID, sq.Author)
	} else {
		row = r.db.QueryRowContext(ctx, query, sq.Text, sq.Answer, sq.Number, sq.Count, sq.Depth,
			sq.CategoryID, sq.SubcategoryID, sq.ParentQuestionID, sq.ParentSubQuestionID, sq.Author)
	}
	if err := row.Scan(&sq.ID, &sq.CreatedAt, &sq.UpdatedAt); err != nil {
		return fmt.Errorf("pgSubQuestionRepository.Create: %w", common.ClassifyStoreError(err))
	}
	return nil
}

func (r *pgSubQuestionRepository) FindByID(ctx context.Context, id int64) (*model.SubQuestion, error) {
	query := `SELECT ` + subQuestionColumns + ` FROM sub_questions WHERE id = $1`
	sq := &model.SubQuestion{}
	err := scanSubQuestion(r.db.QueryRowContext(ctx, query, id), sq)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSubQuestionRepository.FindByID: %w", common.ClassifyStoreError(err))
	}
	return sq, nil
}

func (r *pgSubQuestionRepository) ListByParentQuestion(ctx context.Context, questionID int64) ([]model.SubQuestion, error) {
	query := `SELECT ` + subQuestionColumns + ` FROM sub_questions WHERE parent_question_id = $1 ORDER BY number ASC, id ASC`
	return r.list(ctx, "ListByParentQuestion", query, questionID)
}

// ListByParentSubQuestions loads one breadth-first frontier: every row whose
// parent_subquestion_id is in parentIDs.
func (r *pgSubQuestionRepository) ListByParentSubQuestions(ctx context.Context, parentIDs []int64) ([]model.SubQuestion, error) {
	if len(parentIDs) == 0 {
		return []model.SubQuestion{}, nil
	}

	placeholders := make([]string, len(parentIDs))
	args := make([]interface{}, len(parentIDs))
	for i, id := range parentIDs {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := `SELECT ` + subQuestionColumns + ` FROM sub_questions
	          WHERE parent_subquestion_id IN (` + strings.Join(placeholders, ",") + `) ORDER BY number ASC, id ASC`
	return r.list(ctx, "ListByParentSubQuestions", query, args...)
}

func (r *pgSubQuestionRepository) list(ctx context.Context, method, query string, args ...interface{}) ([]model.SubQuestion, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgSubQuestionRepository.%s query: %w", method, common.ClassifyStoreError(err))
	}
	defer rows.Close()

	subQuestions := []model.SubQuestion{}
	for rows.Next() {
		var sq model.SubQuestion
		if err := scanSubQuestion(rows, &sq); err != nil {
			return nil, fmt.Errorf("pgSubQuestionRepository.%s scan: %w", method, err)
		}
		subQuestions = append(subQuestions, sq)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("pgSubQuestionRepository.%s rows.Err: %w", method, common.ClassifyStoreError(err))
	}
	return subQuestions, nil
}

func (r *pgSubQuestionRepository) Update(ctx context.Context, tx *sql.Tx, sq *model.SubQuestion) error {
	// Parentage and depth are deliberately not updatable; restructuring a
	// tree is not a supported mutation.
	query := `UPDATE sub_questions SET
	            text = $1, answer = $2, number = $3, count = $4,
	            category_id = $5, subcategory_id = $6, author_edit = $7,
	            updated_at = CURRENT_TIMESTAMP
	          WHERE id = $8`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, sq.Text, sq.Answer, sq.Number, sq.Count, sq.CategoryID, sq.SubcategoryID, sq.AuthorEdit, sq.ID)
	} else {
		_, err = r.db.ExecContext(ctx, query, sq.Text, sq.Answer, sq.Number, sq.Count, sq.CategoryID, sq.SubcategoryID, sq.AuthorEdit, sq.ID)
	}
	if err != nil {
		return fmt.Errorf("pgSubQuestionRepository.Update: %w", common.ClassifyStoreError(err))
	}
	return nil
}

func (r *pgSubQuestionRepository) Delete(ctx context.Context, tx *sql.Tx, id int64) error {
	query := `DELETE FROM sub_questions WHERE id = $1`

	var res sql.Result
	var err error
	if tx != nil {
		res, err = tx.ExecContext(ctx, query, id)
	} else {
		res, err = r.db.ExecContext(ctx, query, id)
	}
	if err != nil {
		return fmt.Errorf("pgSubQuestionRepository.Delete: %w", common.ClassifyStoreError(err))
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *pgSubQuestionRepository) CountChildren(ctx context.Context, tx *sql.Tx, subQuestionID int64) (int, error) {
	query := `SELECT COUNT(*) FROM sub_questions WHERE parent_subquestion_id = $1`

	var row *sql.Row
	if tx != nil {
		row = tx.QueryRowContext(ctx, query, subQuestionID)
	} else {
		row = r.db.QueryRowContext(ctx, query, subQuestionID)
	}
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("pgSubQuestionRepository.CountChildren: %w", common.ClassifyStoreError(err))
	}
	return count, nil
}
