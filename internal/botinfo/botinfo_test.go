package botinfo

import "testing"

func TestCache_SetGet(t *testing.T) {
	c := New()
	if _, _, ok := c.Get(); ok {
		t.Fatal("a fresh cache should report ok=false")
	}
	c.Set("kovi-bot", 12345)
	nickname, userID, ok := c.Get()
	if !ok || nickname != "kovi-bot" || userID != 12345 {
		t.Errorf("Get() = %q, %d, %v", nickname, userID, ok)
	}
}
