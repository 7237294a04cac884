package session

import "testing"

func TestStoreStartsEmpty(t *testing.T) {
	store := NewStore()
	if user, ok := store.User(); ok || user != nil {
		t.Fatalf("expected empty store, got %+v", user)
	}
	if store.Snapshot().Authenticated() {
		t.Fatalf("expected anonymous snapshot")
	}
}

func TestStoreSetUserReplacesWholesale(t *testing.T) {
	store := NewStore()
	store.SetUser(User{ID: "1", Email: "a@b.com", Tokens: 5, Auth: "x"})
	store.SetUser(User{ID: "2", Email: "c@d.com"})

	user, ok := store.User()
	if !ok {
		t.Fatalf("expected user")
	}
	want := User{ID: "2", Email: "c@d.com"}
	if *user != want {
		t.Fatalf("expected %+v, got %+v", want, *user)
	}
}

func TestStoreUserReturnsCopy(t *testing.T) {
	store := NewStore()
	store.SetUser(User{ID: "1", Email: "a@b.com", Tokens: 5, Auth: "x"})

	user, _ := store.User()
	user.Tokens = 99

	again, _ := store.User()
	if again.Tokens != 5 {
		t.Fatalf("mutating a snapshot must not change the store, got tokens=%d", again.Tokens)
	}
}

func TestStoreSetUserIdempotent(t *testing.T) {
	store := NewStore()
	var notifications int
	store.Subscribe(func(Snapshot) { notifications++ })

	u := User{ID: "1", Email: "a@b.com", Tokens: 5, Auth: "x"}
	store.SetUser(u)
	once := store.Snapshot()
	store.SetUser(u)
	twice := store.Snapshot()

	if *once.User != *twice.User {
		t.Fatalf("expected identical state, got %+v and %+v", *once.User, *twice.User)
	}
	if notifications != 1 {
		t.Fatalf("expected a single notification, got %d", notifications)
	}
}

func TestStoreClearUserNotifiesOnlyOnChange(t *testing.T) {
	store := NewStore()
	var snaps []Snapshot
	store.Subscribe(func(s Snapshot) { snaps = append(snaps, s) })

	store.ClearUser()
	if len(snaps) != 0 {
		t.Fatalf("clearing an empty store must not notify")
	}

	store.SetUser(User{ID: "1", Email: "a@b.com"})
	store.ClearUser()
	if len(snaps) != 2 {
		t.Fatalf("expected two notifications, got %d", len(snaps))
	}
	if !snaps[0].Authenticated() || snaps[1].Authenticated() {
		t.Fatalf("unexpected transition sequence: %+v", snaps)
	}
	if _, ok := store.User(); ok {
		t.Fatalf("expected store to be empty after ClearUser")
	}
}

func TestStoreSubscribeCancel(t *testing.T) {
	store := NewStore()
	var first, second int
	cancel := store.Subscribe(func(Snapshot) { first++ })
	store.Subscribe(func(Snapshot) { second++ })

	store.SetUser(User{ID: "1"})
	cancel()
	cancel()
	store.SetUser(User{ID: "2"})

	if first != 1 {
		t.Fatalf("cancelled listener should have seen one change, got %d", first)
	}
	if second != 2 {
		t.Fatalf("remaining listener should have seen two changes, got %d", second)
	}
}

func TestStoreListenerMayReadStore(t *testing.T) {
	store := NewStore()
	var seen string
	store.Subscribe(func(Snapshot) {
		if u, ok := store.User(); ok {
			seen = u.Email
		}
	})
	store.SetUser(User{ID: "1", Email: "a@b.com"})
	if seen != "a@b.com" {
		t.Fatalf("listener should observe the new user, got %q", seen)
	}
}
