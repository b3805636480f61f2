package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStudentGetSumsFees(t *testing.T) {
	f := newFixture(t)
	f.seedStudent(t, "2203177", "2203177@student.ruet.ac.bd", "pw", i64(560), i64(27), i64(590))

	p, err := f.student.Get(context.Background(), "2203177")
	require.NoError(t, err)
	require.NotNil(t, p.Due)
	assert.Equal(t, int64(1177), p.Due.Total)
	require.Len(t, p.Due.Items, 3)
	assert.Equal(t, DueItem{Title: "Hall Fee", Amount: 560}, p.Due.Items[0])
	assert.Equal(t, DueItem{Title: "Library Fine", Amount: 27}, p.Due.Items[1])
	assert.Equal(t, DueItem{Title: "Department Fee", Amount: 590}, p.Due.Items[2])
	assert.Nil(t, p.Hall)
}

func TestStudentGetTreatsNullFeesAsZero(t *testing.T) {
	f := newFixture(t)
	f.seedStudent(t, "2203177", "2203177@student.ruet.ac.bd", "pw", i64(100), nil, nil)

	p, err := f.student.Get(context.Background(), "2203177")
	require.NoError(t, err)
	assert.Equal(t, int64(100), p.Due.Total)
	assert.Len(t, p.Due.Items, 3, "zero items are still listed")
}

func TestStudentGetNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.student.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrStudentNotFound)
}

func TestStudentListOrderedWithoutDue(t *testing.T) {
	f := newFixture(t)
	f.seedStudent(t, "2203178", "2203178@student.ruet.ac.bd", "pw", nil, nil, nil)
	f.seedStudent(t, "2203177", "2203177@student.ruet.ac.bd", "pw", i64(1), nil, nil)

	list, err := f.student.List(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "2203177", list[0].StudentID)
	assert.Equal(t, int64(1), list[0].HallFee)
	assert.Nil(t, list[0].Due)
}

func TestDepartmentFor(t *testing.T) {
	cases := map[string]string{"2203177": "CSE", "2100001": "CE", "1913042": "MSE", "2209001": "ARCH"}
	for id, want := range cases {
		got, err := DepartmentFor(id)
		require.NoError(t, err, id)
		assert.Equal(t, want, got, id)
	}

	_, err := DepartmentFor("2299001")
	assert.ErrorIs(t, err, ErrUnknownDepartmentCode)
	_, err = DepartmentFor("22")
	assert.ErrorIs(t, err, ErrUnknownDepartmentCode)
}
