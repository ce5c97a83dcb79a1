package dialog

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveAnswerByControlID(t *testing.T) {
	for prefix, qs := range answersByCategory {
		for i := range qs {
			ev := Event{ControlID: fmt.Sprintf("%s_%d", prefix, i+1), Shape: ShapeList}
			answer, ok := resolveAnswer(prefix, ev)
			require.True(t, ok, "%s_%d", prefix, i+1)
			require.Equal(t, qs[i].answer, answer)
		}
	}
}

func TestResolveAnswerByOrdinalAndQuestion(t *testing.T) {
	answer, ok := resolveAnswer("transport", Event{CanonicalText: "2"})
	require.True(t, ok)
	require.Contains(t, answer, "5 horas")

	answer, ok = resolveAnswer("security", Event{CanonicalText: "¿Qué hacer en caso de accidente?"})
	require.True(t, ok)
	require.Contains(t, answer, "emergencias")
}

func TestResolveAnswerMisses(t *testing.T) {
	_, ok := resolveAnswer("security", Event{ControlID: "security_9"})
	require.False(t, ok)

	_, ok = resolveAnswer("security", Event{ControlID: "quality_1"})
	require.False(t, ok)

	_, ok = resolveAnswer("quality", Event{CanonicalText: "0"})
	require.False(t, ok)

	_, ok = resolveAnswer("quality", Event{CanonicalText: "cualquier cosa"})
	require.False(t, ok)
}

func TestCategoryRowsStayWithinProviderLimits(t *testing.T) {
	for prefix := range answersByCategory {
		rows := categoryRows(prefix)
		require.NotEmpty(t, rows)
		for _, row := range rows {
			require.LessOrEqual(t, len([]rune(row.Title)), listTitleBudget)
			require.NotEmpty(t, row.ID)
		}
	}
}

func TestTruncateTitle(t *testing.T) {
	require.Equal(t, "corto", TruncateTitle("  corto "))
	require.Equal(t, "123456789012345678901234", TruncateTitle("123456789012345678901234"))

	long := TruncateTitle("una pregunta demasiado larga para caber")
	require.Equal(t, listTitleBudget, len([]rune(long)))
	require.Equal(t, "…", string([]rune(long)[listTitleBudget-1:]))
}
