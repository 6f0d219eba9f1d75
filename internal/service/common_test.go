package service

import (
	"database/sql"
	"testing"

	"github.com/AdamBeresnev/shuttle-bracket/internal/bracket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitWith(t *testing.T) {
	db := setupTestDB(t)

	tx, err := db.Beginx()
	require.NoError(t, err)
	participant, err := commitWith(tx, &bracket.Participant{DisplayName: "Axelsen"})
	require.NoError(t, err)
	require.NotNil(t, participant)
	assert.Equal(t, "Axelsen", participant.DisplayName)

	tx, err = db.Beginx()
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	participant, err = commitWith(tx, &bracket.Participant{DisplayName: "Lee"})
	assert.ErrorIs(t, err, sql.ErrTxDone)
	assert.Nil(t, participant, "no value alongside a failed commit")

	tx, err = db.Beginx()
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	tiers, err := commitWith(tx, []bracket.AchievementTier{{Title: "Champion"}})
	assert.Error(t, err)
	assert.Nil(t, tiers)
}
