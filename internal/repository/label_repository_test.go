package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

const (
	deleteTicketLabelsSQL = `DELETE FROM ticket_labels WHERE ticket_id=\$1`
	insertTicketLabelsSQL = `INSERT INTO ticket_labels \(ticket_id, label_id\) SELECT \$1, UNNEST\(\$2::text\[\]::uuid\[\]\) ON CONFLICT DO NOTHING`
)

func TestLabelReplaceSwapsSetInOneTransaction(t *testing.T) {
	mock := newMockDB(t)
	repo := NewLabelRepository(mock)
	ids := []string{"l-1", "l-2"}

	mock.ExpectBegin()
	mock.ExpectExec(deleteTicketLabelsSQL).WithArgs("t-1").WillReturnResult(pgxmock.NewResult("DELETE", 3))
	mock.ExpectExec(insertTicketLabelsSQL).WithArgs("t-1", ids).WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	require.NoError(t, repo.Replace(context.Background(), "t-1", ids))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLabelReplaceWithEmptySetOnlyDeletes(t *testing.T) {
	mock := newMockDB(t)
	repo := NewLabelRepository(mock)

	mock.ExpectBegin()
	mock.ExpectExec(deleteTicketLabelsSQL).WithArgs("t-1").WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Replace(context.Background(), "t-1", nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLabelReplaceRollsBackOnFailure(t *testing.T) {
	mock := newMockDB(t)
	repo := NewLabelRepository(mock)
	boom := errors.New("label missing")

	mock.ExpectBegin()
	mock.ExpectExec(deleteTicketLabelsSQL).WithArgs("t-1").WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(insertTicketLabelsSQL).WithArgs("t-1", []string{"l-9"}).WillReturnError(boom)
	mock.ExpectRollback()

	err := repo.Replace(context.Background(), "t-1", []string{"l-9"})
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}
