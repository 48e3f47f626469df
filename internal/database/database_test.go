package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"personalfinance/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Init())
	return db
}

func seedAccount(t *testing.T, db *DB) (int64, int64) {
	t.Helper()
	userID, err := db.CreateUser("alice", "hash")
	require.NoError(t, err)
	accountID, err := db.CreateAccount(models.Account{
		UserID: userID, Name: "Checking", AccountType: "CHECKING", Active: true,
	})
	require.NoError(t, err)
	return userID, accountID
}

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func txn(userID, accountID int64, d time.Time, desc, amount string) models.Transaction {
	return models.Transaction{
		UserID:      userID,
		AccountID:   accountID,
		Date:        d,
		Description: desc,
		Amount:      dec(amount),
		Category:    "Dining",
		Type:        models.TypeExpense,
	}
}

func TestUsersAndAccounts(t *testing.T) {
	db := testDB(t)
	userID, accountID := seedAccount(t, db)

	user, err := db.GetUserByName("alice")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, userID, user.ID)

	missing, err := db.GetUserByName("nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	// Name lookup is case-insensitive; CSV account columns vary in case.
	acc, err := db.GetAccountByName(userID, "checking")
	require.NoError(t, err)
	require.NotNil(t, acc)
	assert.Equal(t, accountID, acc.ID)

	// Accounts are scoped to their owner.
	otherID, err := db.CreateUser("bob", "hash")
	require.NoError(t, err)
	acc, err = db.GetAccountByName(otherID, "Checking")
	require.NoError(t, err)
	assert.Nil(t, acc)
}

func TestCommitImportPersistsAtomically(t *testing.T) {
	db := testDB(t)
	userID, accountID := seedAccount(t, db)

	d := date(2024, 3, 1)
	imp := &models.StatementImport{
		UserID:     userID,
		AccountID:  accountID,
		SourceType: models.SourceCSV,
		Status:     models.ImportStatusImported,
		Filename:   "march.csv",
		FileHash:   "abc123",
		RowsDetected: 2, RowsImported: 2,
	}
	err := db.CommitImport([]models.Transaction{
		txn(userID, accountID, d, "Coffee Shop", "4.50"),
		txn(userID, accountID, d, "Bagel Place", "3.00"),
	}, imp)
	require.NoError(t, err)

	got, err := db.FindTransactionsNearDate(accountID, d, 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Coffee Shop", got[0].Description)
	assert.True(t, got[0].Amount.Equal(dec("4.50")))
	assert.Equal(t, models.TypeExpense, got[0].Type)
	assert.Equal(t, d, got[0].Date)

	prior, err := db.FindCommittedImport(accountID, "abc123")
	require.NoError(t, err)
	require.NotNil(t, prior)
	assert.Equal(t, 2, prior.RowsImported)
}

func TestCommitImportRollsBackOnFailure(t *testing.T) {
	db := testDB(t)
	userID, accountID := seedAccount(t, db)

	// Second transaction violates the accounts FK, so the whole commit
	// must roll back.
	err := db.CommitImport([]models.Transaction{
		txn(userID, accountID, date(2024, 3, 1), "Coffee Shop", "4.50"),
		txn(userID, 9999, date(2024, 3, 1), "Bad Row", "1.00"),
	}, &models.StatementImport{
		UserID: userID, AccountID: accountID,
		SourceType: models.SourceCSV, Status: models.ImportStatusImported,
		Filename: "march.csv", FileHash: "abc123",
	})
	require.Error(t, err)

	got, err := db.FindTransactionsNearDate(accountID, date(2024, 3, 1), 5)
	require.NoError(t, err)
	assert.Empty(t, got)

	prior, err := db.FindCommittedImport(accountID, "abc123")
	require.NoError(t, err)
	assert.Nil(t, prior)
}

func TestFindCommittedImportIgnoresBlockedRows(t *testing.T) {
	db := testDB(t)
	userID, accountID := seedAccount(t, db)

	_, err := db.CreateStatementImport(&models.StatementImport{
		UserID: userID, AccountID: accountID,
		SourceType: models.SourceCSV, Status: models.ImportStatusBlockedDuplicate,
		Filename: "march.csv", FileHash: "abc123",
	})
	require.NoError(t, err)

	prior, err := db.FindCommittedImport(accountID, "abc123")
	require.NoError(t, err)
	assert.Nil(t, prior, "a blocked upload does not count as a committed import")
}

func TestFindTransactionsNearDateWindow(t *testing.T) {
	db := testDB(t)
	userID, accountID := seedAccount(t, db)

	err := db.CommitImport([]models.Transaction{
		txn(userID, accountID, date(2024, 3, 1), "Inside", "1.00"),
		txn(userID, accountID, date(2024, 3, 6), "Edge", "1.00"),
		txn(userID, accountID, date(2024, 3, 20), "Outside", "1.00"),
	}, &models.StatementImport{
		UserID: userID, AccountID: accountID,
		SourceType: models.SourceCSV, Status: models.ImportStatusImported,
		Filename: "march.csv", FileHash: "h",
	})
	require.NoError(t, err)

	got, err := db.FindTransactionsNearDate(accountID, date(2024, 3, 1), 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Inside", got[0].Description)
	assert.Equal(t, "Edge", got[1].Description)
}

func TestFutureTransactionsAndDateUpdate(t *testing.T) {
	db := testDB(t)
	userID, accountID := seedAccount(t, db)

	err := db.CommitImport([]models.Transaction{
		txn(userID, accountID, date(2024, 3, 1), "Past", "1.00"),
		txn(userID, accountID, date(2099, 3, 1), "Future", "1.00"),
	}, &models.StatementImport{
		UserID: userID, AccountID: accountID,
		SourceType: models.SourceCSV, Status: models.ImportStatusImported,
		Filename: "march.csv", FileHash: "h",
	})
	require.NoError(t, err)

	future, err := db.ListFutureTransactions(userID, accountID, date(2025, 1, 1))
	require.NoError(t, err)
	require.Len(t, future, 1)
	assert.Equal(t, "Future", future[0].Description)

	require.NoError(t, db.UpdateTransactionDate(future[0].ID, date(2098, 3, 1)))
	future, err = db.ListFutureTransactions(userID, 0, date(2098, 6, 1))
	require.NoError(t, err)
	assert.Empty(t, future)
}

func TestListImportsPaginated(t *testing.T) {
	db := testDB(t)
	userID, accountID := seedAccount(t, db)

	for i := 0; i < 3; i++ {
		_, err := db.CreateStatementImport(&models.StatementImport{
			UserID: userID, AccountID: accountID,
			SourceType: models.SourceCSV, Status: models.ImportStatusBlockedDuplicate,
			Filename: "dup.csv", FileHash: "h",
		})
		require.NoError(t, err)
	}

	page, total, err := db.ListImports(userID, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, page, 2)

	rest, _, err := db.ListImports(userID, 2, 2)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}
