package dashboard

import (
	"sort"

	"github.com/zulandar/chatsync/internal/models"
	"github.com/zulandar/chatsync/internal/store"
)

// StateSummary is the /api/state payload.
type StateSummary struct {
	Active      models.Container `json:"active"`
	Messages    int              `json:"messages"`
	Failed      int              `json:"failed"`
	Notes       int              `json:"notes"`
	Rooms       []string         `json:"rooms"`
	Discussions []string         `json:"discussions"`
	Unread      int              `json:"unread"`
}

// FailedRow describes one message awaiting resend.
type FailedRow struct {
	UUID      string `json:"uuid"`
	Text      string `json:"text"`
	Media     int    `json:"media"`
	CreatedOn string `json:"created_on"`
	InFlight  bool   `json:"in_flight"`
}

func buildState(st *store.Store) StateSummary {
	unread := 0
	for _, list := range st.AllPreviews() {
		unread += len(list)
	}
	return StateSummary{
		Active:      st.Active(),
		Messages:    len(st.Messages()),
		Failed:      len(st.Failed()),
		Notes:       len(st.Notes()),
		Rooms:       st.Rooms(),
		Discussions: st.Discussions(),
		Unread:      unread,
	}
}

func failedRows(st *store.Store) []FailedRow {
	failed := st.Failed()
	rows := make([]FailedRow, 0, len(failed))
	for _, m := range failed {
		rows = append(rows, FailedRow{
			UUID:      m.UUID,
			Text:      m.Text,
			Media:     len(m.Media),
			CreatedOn: m.CreatedOn,
			InFlight:  st.InFlight(m.UUID),
		})
	}
	return rows
}

// previewsByContainer keys previews by "kind:uuid" so they encode as a
// JSON object.
func previewsByContainer(st *store.Store) map[string][]models.Preview {
	all := st.AllPreviews()
	out := make(map[string][]models.Preview, len(all))
	keys := make([]models.Container, 0, len(all))
	for c := range all {
		keys = append(keys, c)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	for _, c := range keys {
		out[c.String()] = all[c]
	}
	return out
}
