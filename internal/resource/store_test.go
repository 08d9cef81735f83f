package resource

import (
	"errors"
	"slices"
	"testing"
)

type doc struct {
	ID    string `json:"_id"`
	Title string `json:"title"`
}

func (d doc) ResourceID() string { return d.ID }

func intPtr(v int) *int { return &v }

func TestBegin_DedupByKey(t *testing.T) {
	s := NewStore[doc]("docs")

	if !s.Begin("?a=1", false) {
		t.Fatalf("first Begin must start a fetch")
	}
	if s.Begin("?a=1", false) {
		t.Fatalf("second Begin while pending must be suppressed")
	}
	if !s.Begin("?a=2", false) {
		t.Fatalf("other key must not be blocked")
	}

	s.ResolveList("?a=1", ListPage[doc]{})
	if s.Begin("?a=1", false) {
		t.Fatalf("fulfilled entry must not refetch without invalidate")
	}
	if !s.Begin("?a=1", true) {
		t.Fatalf("forced Begin must always start a fetch")
	}
}

func TestResolveList_ReplacesIDsAndMergesByID(t *testing.T) {
	s := NewStore[doc]("docs")
	key := "?page=1&per=10"

	s.Begin(key, false)
	s.ResolveList(key, ListPage[doc]{
		Items:      []doc{{ID: "1", Title: "a"}, {ID: "2", Title: "b"}, {ID: "3", Title: "c"}},
		TotalPages: intPtr(3),
		TotalCount: intPtr(25),
	})

	snap := s.List(key)
	if !slices.Equal(snap.IDs, []string{"1", "2", "3"}) {
		t.Fatalf("ids = %v", snap.IDs)
	}
	if len(snap.Data) != 3 || snap.Data[0].Title != "a" || snap.Data[2].Title != "c" {
		t.Fatalf("data = %+v", snap.Data)
	}
	if snap.TotalPages != 3 || snap.TotalCount != 25 || snap.ReceivedAt.IsZero() {
		t.Fatalf("meta = %+v", snap)
	}

	s.Invalidate(key)
	s.Begin(key, false)
	s.ResolveList(key, ListPage[doc]{Items: []doc{{ID: "3", Title: "c2"}, {ID: "1", Title: "a"}}})

	snap = s.List(key)
	if !slices.Equal(snap.IDs, []string{"3", "1"}) {
		t.Fatalf("ids must be replaced, got %v", snap.IDs)
	}
	// id 2 остаётся в byID, но не в списке
	if _, ok := s.Get("2"); !ok {
		t.Fatalf("byID must keep resources from previous lists")
	}
	if got, _ := s.Get("3"); got.Title != "c2" {
		t.Fatalf("last write must win, got %q", got.Title)
	}
}

func TestFlags(t *testing.T) {
	s := NewStore[doc]("docs")

	snap := s.List("?x=1")
	if snap.Status != StatusUntried || !snap.IsFetching || !snap.IsLoading || snap.IsSuccess {
		t.Fatalf("untried flags = %+v", snap.Flags)
	}

	s.Begin("?x=1", false)
	if snap = s.List("?x=1"); snap.IsSuccess || !snap.IsLoading {
		t.Fatalf("pending flags = %+v", snap.Flags)
	}

	s.ResolveList("?x=1", ListPage[doc]{})
	if snap = s.List("?x=1"); !snap.IsSuccess || !snap.IsEmpty || snap.IsFetching || snap.Data == nil {
		t.Fatalf("empty list flags = %+v data=%v", snap.Flags, snap.Data)
	}

	s.Begin("missing", false)
	s.ResolveSingle("missing", nil)
	if one := s.Single("missing"); !one.IsSuccess || !one.IsEmpty || one.Data != nil {
		t.Fatalf("not-found single flags = %+v", one.Flags)
	}
}

func TestReject_KeepsDataAndNoDirectFulfill(t *testing.T) {
	s := NewStore[doc]("docs")
	s.Begin("1", false)
	s.ResolveSingle("1", &doc{ID: "1", Title: "a"})
	s.Invalidate("1")

	s.Begin("1", false)
	boom := errors.New("boom")
	s.Reject("1", boom)

	snap := s.Single("1")
	if !snap.IsError || !errors.Is(snap.Err, boom) {
		t.Fatalf("rejected flags = %+v err=%v", snap.Flags, snap.Err)
	}
	if snap.Data == nil || snap.Data.Title != "a" || snap.IsLoading {
		t.Fatalf("stale data must stay available: %+v", snap)
	}

	// rejected → fulfilled только через pending
	s.ResolveSingle("1", &doc{ID: "1", Title: "b"})
	if snap = s.Single("1"); snap.Status != StatusRejected {
		t.Fatalf("status = %s, want rejected", snap.Status)
	}
	if !s.Begin("1", false) {
		t.Fatalf("rejected entry must be retried")
	}
}

func TestInvalidate_StaleDataForcesRefetch(t *testing.T) {
	s := NewStore[doc]("docs")
	s.Begin("?k=v", false)
	s.ResolveList("?k=v", ListPage[doc]{Items: []doc{{ID: "1"}}})

	s.Invalidate("?k=v")
	snap := s.List("?k=v")
	if snap.Status != StatusUntried || !snap.IsFetching || snap.IsLoading || len(snap.Data) != 1 {
		t.Fatalf("invalidated entry = %+v", snap)
	}
	if !s.Begin("?k=v", false) {
		t.Fatalf("invalidated entry must refetch")
	}
}

func TestUpsert_RecordsPreviousVersion(t *testing.T) {
	s := NewStore[doc]("docs")
	s.Begin("1", false)
	s.ResolveSingle("1", &doc{ID: "1", Title: "old"})

	s.Upsert(doc{ID: "1", Title: "new"})

	snap := s.Single("1")
	if snap.Data.Title != "new" || snap.PreviousVersion == nil || snap.PreviousVersion.Title != "old" {
		t.Fatalf("snapshot = %+v prev=%+v", snap.Data, snap.PreviousVersion)
	}

	s.Upsert(doc{ID: "2", Title: "created"})
	if snap = s.Single("2"); !snap.IsSuccess || snap.PreviousVersion != nil {
		t.Fatalf("created snapshot = %+v", snap)
	}
}

func TestRemove_DropsFromByIDAndLists(t *testing.T) {
	s := NewStore[doc]("docs")
	s.Begin("?all", false)
	s.ResolveList("?all", ListPage[doc]{Items: []doc{{ID: "1"}, {ID: "2"}}})

	s.Remove("1")

	if _, ok := s.Get("1"); ok {
		t.Fatalf("resource must be removed from byID")
	}
	if ids := s.List("?all").IDs; !slices.Equal(ids, []string{"2"}) {
		t.Fatalf("list ids = %v", ids)
	}
	if snap := s.Single("1"); !snap.IsEmpty {
		t.Fatalf("removed single must be empty: %+v", snap.Flags)
	}
}

func TestAddRemoveIDs(t *testing.T) {
	s := NewStore[doc]("docs")
	s.Upsert(doc{ID: "a"})
	s.Upsert(doc{ID: "b"})

	s.AddIDs("?mine", "a", "b", "a")
	if ids := s.List("?mine").IDs; !slices.Equal(ids, []string{"a", "b"}) {
		t.Fatalf("ids = %v", ids)
	}
	s.RemoveIDs("?mine", "a")
	if ids := s.List("?mine").IDs; !slices.Equal(ids, []string{"b"}) {
		t.Fatalf("ids = %v", ids)
	}
}

func TestSubscribe_ListNotifiedOnItemUpsert(t *testing.T) {
	s := NewStore[doc]("docs")
	s.Begin("?l", false)
	s.ResolveList("?l", ListPage[doc]{Items: []doc{{ID: "1"}}})

	var got []string
	cancel := s.Subscribe("?l", func(key string) { got = append(got, key) })

	s.Upsert(doc{ID: "1", Title: "x"})
	s.Upsert(doc{ID: "9", Title: "unrelated"})
	cancel()
	s.Upsert(doc{ID: "1", Title: "y"})

	if !slices.Equal(got, []string{"?l"}) {
		t.Fatalf("notifications = %v", got)
	}
}

func TestReset_DropsEverything(t *testing.T) {
	s := NewStore[doc]("docs")
	s.Begin("?l", false)
	s.ResolveList("?l", ListPage[doc]{Items: []doc{{ID: "1"}}})

	notified := 0
	s.SubscribeAll(func(string) { notified++ })
	s.Reset()

	if _, ok := s.Get("1"); ok {
		t.Fatalf("byID must be empty after Reset")
	}
	if snap := s.List("?l"); snap.Status != StatusUntried || snap.Data != nil {
		t.Fatalf("entry must be untried after Reset: %+v", snap)
	}
	if notified == 0 {
		t.Fatalf("subscribers must be notified on Reset")
	}
	// ответ, пришедший после сброса, отбрасывается
	s.ResolveList("?l", ListPage[doc]{Items: []doc{{ID: "1"}}})
	if _, ok := s.Get("1"); ok {
		t.Fatalf("late response must be dropped")
	}
}
