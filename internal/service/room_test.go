package service

import (
	"errors"
	"strings"
	"testing"

	"linkchat/internal/auth"
	"linkchat/internal/models"
)

func TestGenerateRoomLink(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		link, err := GenerateRoomLink()
		if err != nil {
			t.Fatalf("GenerateRoomLink() error = %v", err)
		}
		if !ValidRoomLink(link) {
			t.Fatalf("GenerateRoomLink() = %q, not 16 alphanumeric chars", link)
		}
		if _, ok := seen[link]; ok {
			t.Fatalf("GenerateRoomLink() produced duplicate %q", link)
		}
		seen[link] = struct{}{}
	}
}

func TestValidRoomLink(t *testing.T) {
	tests := []struct {
		name string
		link string
		want bool
	}{
		{"valid", "aB3dE5fG7hJ9kL1m", true},
		{"too short", "aB3dE5fG7hJ9kL1", false},
		{"too long", "aB3dE5fG7hJ9kL1mX", false},
		{"punctuation", "aB3dE5fG7hJ9kL1-", false},
		{"empty", "", false},
		{"sql-ish", "' OR 1=1 --      ", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidRoomLink(tt.link); got != tt.want {
				t.Errorf("ValidRoomLink(%q) = %v, want %v", tt.link, got, tt.want)
			}
		})
	}
}

func TestRoomService_Create_Validation(t *testing.T) {
	svc := NewRoomService(newTestDB(t))

	tests := []struct {
		name     string
		roomName string
		password string
		wantErr  error
	}{
		{"valid", "general", "secret123", nil},
		{"name too short", "ab", "secret123", ErrInvalidRoomName},
		{"name too long", "a123456789012345678901234567890", "secret123", ErrInvalidRoomName},
		{"password too short", "general", "12345", ErrInvalidPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			room, err := svc.Create(tt.roomName, tt.password, 1)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Create() error = %v, want %v", err, tt.wantErr)
				return
			}
			if tt.wantErr == nil && !ValidRoomLink(room.Link) {
				t.Errorf("Create() link = %q, not 16 alphanumeric chars", room.Link)
			}
		})
	}
}

func TestRoomService_Create_NameLengthByRunes(t *testing.T) {
	svc := NewRoomService(newTestDB(t))

	// 名字长度按字符计数，多字节字符不应提前触顶。
	room, err := svc.Create(strings.Repeat("名", 11), "secret123", 1)
	if err != nil {
		t.Fatalf("Create() 11-rune CJK name error = %v", err)
	}
	if !ValidRoomLink(room.Link) {
		t.Errorf("Create() link = %q, not 16 alphanumeric chars", room.Link)
	}

	if _, err := svc.Create("名名", "secret123", 1); !errors.Is(err, ErrInvalidRoomName) {
		t.Errorf("Create() 2-rune CJK name error = %v, want ErrInvalidRoomName", err)
	}
	if _, err := svc.Create(strings.Repeat("名", 31), "secret123", 1); !errors.Is(err, ErrInvalidRoomName) {
		t.Errorf("Create() 31-rune CJK name error = %v, want ErrInvalidRoomName", err)
	}
}

func TestRoomService_Create_RetriesOnCollision(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewRoomService(gdb)

	taken := mustCreateRoom(t, svc, "existing", "secret123", 1)

	// 第一次生成返回已占用的链接，验证创建会重试并换一个。
	calls := 0
	svc.genLink = func() (string, error) {
		calls++
		if calls == 1 {
			return taken, nil
		}
		return GenerateRoomLink()
	}

	room, err := svc.Create("general", "secret123", 2)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if room.Link == taken {
		t.Fatalf("Create() reused taken link %q", taken)
	}
	if calls < 2 {
		t.Errorf("link generator called %d times, want at least 2", calls)
	}
}

func TestRoomService_Create_UniqueLinks(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewRoomService(gdb)

	links := make(map[string]struct{})
	for i := 0; i < 10; i++ {
		room, err := svc.Create("room-名", "secret123", 1)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if _, ok := links[room.Link]; ok {
			t.Fatalf("Create() returned duplicate link %q", room.Link)
		}
		links[room.Link] = struct{}{}
	}

	var count int64
	gdb.Model(&models.Room{}).Count(&count)
	if count != 10 {
		t.Errorf("room count = %d, want 10", count)
	}
}

func TestRoomService_Join(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewRoomService(gdb)
	link := mustCreateRoom(t, svc, "general", "roompass1", 1)

	tests := []struct {
		name     string
		link     string
		password string
		wantErr  error
	}{
		{"correct password", link, "roompass1", nil},
		{"wrong password", link, "wrongpass", ErrInvalidRoomPassword},
		{"bad link format", "not-a-valid-link", "roompass1", ErrInvalidRoomLink},
		{"unknown link", "ZZZZZZZZZZZZZZZZ", "roompass1", ErrRoomNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			room, err := svc.Join(tt.link, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Join() error = %v, want %v", err, tt.wantErr)
				return
			}
			if tt.wantErr == nil && room.Link != link {
				t.Errorf("Join() link = %q, want %q", room.Link, link)
			}
		})
	}
}

func TestRoomService_PasswordNotPlaintext(t *testing.T) {
	gdb := newTestDB(t)
	svc := NewRoomService(gdb)
	link := mustCreateRoom(t, svc, "general", "roompass1", 1)

	var room models.Room
	if err := gdb.Where("link = ?", link).First(&room).Error; err != nil {
		t.Fatalf("load room: %v", err)
	}
	if room.PasswordHash == "roompass1" {
		t.Error("room password stored in plaintext")
	}
	if !auth.VerifyPassword(room.PasswordHash, "roompass1", room.Salt) {
		t.Error("stored hash does not verify against the original password")
	}
}

func TestRoomService_Get(t *testing.T) {
	svc := NewRoomService(newTestDB(t))
	link := mustCreateRoom(t, svc, "general", "roompass1", 7)

	room, err := svc.Get(link)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if room.Name != "general" || room.CreatedBy != 7 {
		t.Errorf("Get() = {%q %d}, want {general 7}", room.Name, room.CreatedBy)
	}

	if _, err := svc.Get("ZZZZZZZZZZZZZZZZ"); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("Get() unknown link error = %v, want ErrRoomNotFound", err)
	}
}

func TestRoomService_List(t *testing.T) {
	svc := NewRoomService(newTestDB(t))
	mustCreateRoom(t, svc, "room-one", "secret123", 1)
	mustCreateRoom(t, svc, "room-two", "secret123", 2)

	rooms, err := svc.List(100)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(rooms) != 2 {
		t.Errorf("List() returned %d rooms, want 2", len(rooms))
	}
}
