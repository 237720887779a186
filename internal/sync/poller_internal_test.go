package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendResult_FullQueueKeepsNewest(t *testing.T) {
	p := New(nil, time.Hour)

	total := cap(p.resultCh) + 2
	for i := range total {
		p.sendResult(SnapshotMsg{Days: []string{time.Date(2024, 3, i+1, 0, 0, 0, 0, time.UTC).Format("2006-01-02")}})
	}

	var got []string
	for len(p.resultCh) > 0 {
		got = append(got, (<-p.resultCh).Days[0])
	}

	require.Len(t, got, cap(p.resultCh))
	assert.Equal(t, "2024-03-06", got[len(got)-1])
	assert.Equal(t, "2024-03-03", got[0])
}
