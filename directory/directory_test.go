package directory

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/programme-lv/ojcore/srvcerror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemLookups(t *testing.T) {
	ctx := context.Background()
	d := NewInMemDirectory()
	d.AddProblem(Problem{DomainID: "system", ID: "1000", Title: "A+B", Languages: []string{"cc", "py3"}})
	d.AddProblem(Problem{DomainID: "system", ID: "1001", Title: "Any"})
	alice := User{UID: uuid.New(), Uname: "alice", DisplayName: "Alice"}
	d.AddUser(alice)

	p, err := d.GetProblem(ctx, "system", "1000")
	require.NoError(t, err)
	assert.True(t, p.AcceptsLanguage("py3"))
	assert.False(t, p.AcceptsLanguage("java"))

	anyLang, err := d.GetProblem(ctx, "system", "1001")
	require.NoError(t, err)
	assert.True(t, anyLang.AcceptsLanguage("java"))

	_, err = d.GetProblem(ctx, "other", "1000")
	assert.ErrorIs(t, err, ErrProblemNotFound())

	_, err = d.GetProblems(ctx, "system", []string{"1000", "9999"})
	assert.True(t, srvcerror.IsNotFound(err))

	users, err := d.GetUsers(ctx, []uuid.UUID{alice.UID})
	require.NoError(t, err)
	assert.Equal(t, "Alice", users[alice.UID].Name())
	assert.Equal(t, "bob", User{Uname: "bob"}.Name())

	_, err = d.GetUsers(ctx, []uuid.UUID{uuid.New()})
	assert.ErrorIs(t, err, ErrUserNotFound())
}

func TestInMemCounters(t *testing.T) {
	ctx := context.Background()
	d := NewInMemDirectory()
	d.AddProblem(Problem{DomainID: "system", ID: "1000"})
	uid := uuid.New()

	require.NoError(t, d.IncSubmit(ctx, "system", "1000", uid))
	require.NoError(t, d.IncSubmit(ctx, "system", "1000", uid))
	require.NoError(t, d.IncAccept(ctx, "system", "1000", uid))
	require.Error(t, d.IncSubmit(ctx, "system", "404", uid))

	p, err := d.GetProblem(ctx, "system", "1000")
	require.NoError(t, err)
	assert.EqualValues(t, 2, p.NumSubmit)
	assert.EqualValues(t, 1, p.NumAccept)
	sub, acc := d.UserCounters("system", uid)
	assert.EqualValues(t, 2, sub)
	assert.EqualValues(t, 1, acc)

	require.NoError(t, d.SetHidden(ctx, "system", "1000", true))
	p, err = d.GetProblem(ctx, "system", "1000")
	require.NoError(t, err)
	assert.True(t, p.Hidden)
}
