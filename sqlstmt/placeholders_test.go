package sqlstmt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"go.sqlitecoord.dev/core/dberrors"
)

func TestValidatePlaceholdersPositional(t *testing.T) {
	n, err := ValidatePlaceholders("INSERT INTO t VALUES (?, ?, ?)")
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestValidatePlaceholdersExplicit(t *testing.T) {
	n, err := ValidatePlaceholders("SELECT * FROM t WHERE a = ?1 AND b = ?2")
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestValidatePlaceholdersMixedFormsRejected(t *testing.T) {
	_, err := ValidatePlaceholders("SELECT * FROM t WHERE a = ? AND b = ?1")
	require.Error(t, err)
	require.True(t, dberrors.As(err, dberrors.MixedPlaceholderForms))
}

func TestValidatePlaceholdersMissingIndexRejected(t *testing.T) {
	_, err := ValidatePlaceholders("SELECT ?2")
	require.Error(t, err)
	require.True(t, dberrors.As(err, dberrors.MissingParameterIndex))
}

func TestValidatePlaceholdersZeroIndexRejected(t *testing.T) {
	_, err := ValidatePlaceholders("SELECT ?0")
	require.Error(t, err)
	require.True(t, dberrors.As(err, dberrors.InvalidParameterIndex))
}

func TestValidatePlaceholdersExplicitIndexBeyondEngineLimitRejected(t *testing.T) {
	_, err := ValidatePlaceholders("SELECT ?32767")
	require.Error(t, err)
	require.True(t, dberrors.As(err, dberrors.InvalidParameterIndex))
}

func TestValidatePlaceholdersNamedRejected(t *testing.T) {
	_, err := ValidatePlaceholders("SELECT * FROM t WHERE a = :name")
	require.Error(t, err)
	require.True(t, dberrors.As(err, dberrors.NamedParametersUnsupported))
}

func TestValidatePlaceholdersIgnoresQuotedQuestionMarks(t *testing.T) {
	n, err := ValidatePlaceholders(`SELECT '?' FROM t WHERE a = ?`)
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestValidatePlaceholdersIgnoresCommentedPlaceholders(t *testing.T) {
	n, err := ValidatePlaceholders("SELECT a FROM t -- what about ?\nWHERE a = ?")
	require.NoError(t, err)
	require.Equal(t, 1, n)
}
