package events

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"crowdgov/internal/domain"
)

func TestLog_RingKeepsMostRecent(t *testing.T) {
	l := NewLog(3)
	for seq := uint64(1); seq <= 5; seq++ {
		l.Publish(domain.Event{Seq: seq})
	}

	assert.Equal(t, 3, l.Len())
	got := l.List(Filter{})
	if assert.Len(t, got, 3) {
		assert.Equal(t, uint64(3), got[0].Seq)
		assert.Equal(t, uint64(5), got[2].Seq)
	}
}

func TestLog_List(t *testing.T) {
	l := NewLog(0)
	l.Publish(domain.Event{Seq: 1, Type: domain.EventCampaignLaunched, CampaignID: 1})
	l.Publish(domain.Event{Seq: 2, Type: domain.EventMembershipRequested})
	l.Publish(domain.Event{Seq: 3, Type: domain.EventPledged, CampaignID: 1})
	l.Publish(domain.Event{Seq: 4, Type: domain.EventPledged, CampaignID: 2})

	tests := []struct {
		name   string
		filter Filter
		want   []uint64
	}{
		{name: "All", filter: Filter{}, want: []uint64{1, 2, 3, 4}},
		{name: "After sequence", filter: Filter{AfterSeq: 2}, want: []uint64{3, 4}},
		{name: "By campaign", filter: Filter{CampaignID: 1}, want: []uint64{1, 3}},
		{name: "By type", filter: Filter{Type: domain.EventPledged}, want: []uint64{3, 4}},
		{name: "Limited", filter: Filter{Limit: 2}, want: []uint64{1, 2}},
		{name: "Nothing matches", filter: Filter{CampaignID: 9}, want: []uint64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := make([]uint64, 0)
			for _, ev := range l.List(tt.filter) {
				got = append(got, ev.Seq)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
