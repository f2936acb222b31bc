package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanDeleteFollowsOpenLoans(t *testing.T) {
	env := newTestEnv(t, 0)
	bookID := env.addBook(t, 1)
	memberID := env.addMember(t, "john.doe@example.com")

	ok, err := env.policy.CanDelete(nil, memberID)
	require.NoError(t, err)
	assert.True(t, ok, "member without loans is deletable")

	_, err = env.borrowing.Checkout(memberID, bookID)
	require.NoError(t, err)

	ok, err = env.policy.CanDelete(nil, memberID)
	require.NoError(t, err)
	assert.False(t, ok, "member with an open loan is not deletable")

	_, err = env.borrowing.Return(memberID, bookID)
	require.NoError(t, err)

	ok, err = env.policy.CanDelete(nil, memberID)
	require.NoError(t, err)
	assert.True(t, ok, "member is deletable again once the loan is closed")
}

func TestCheckBorrowCap(t *testing.T) {
	testCases := []struct {
		name         string
		maxOpenLoans int
		openLoans    int
		wantErr      error
	}{
		{name: "no cap", maxOpenLoans: 0, openLoans: 10, wantErr: nil},
		{name: "under cap", maxOpenLoans: 3, openLoans: 2, wantErr: nil},
		{name: "at cap", maxOpenLoans: 3, openLoans: 3, wantErr: ErrBorrowLimitExceeded},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, tc.maxOpenLoans)
			memberID := env.addMember(t, "john.doe@example.com")
			for i := 0; i < tc.openLoans; i++ {
				bookID := env.addBook(t, 1)
				_, err := env.borrowing.Checkout(memberID, bookID)
				require.NoError(t, err)
			}

			nextBook := env.addBook(t, 1)
			err := env.policy.CheckBorrow(nil, memberID, nextBook)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCheckBorrowRejectsDuplicate(t *testing.T) {
	env := newTestEnv(t, 0)
	bookID := env.addBook(t, 2)
	memberID := env.addMember(t, "john.doe@example.com")

	require.NoError(t, env.policy.CheckBorrow(nil, memberID, bookID))

	_, err := env.borrowing.Checkout(memberID, bookID)
	require.NoError(t, err)

	assert.ErrorIs(t, env.policy.CheckBorrow(nil, memberID, bookID), ErrDuplicateActiveLoan)
}
