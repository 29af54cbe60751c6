package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestSessionUser_DecodeRejectsUnknownRole(t *testing.T) {
	var u SessionUser
	err := json.Unmarshal([]byte(`{"id":"1","email":"a@b.c","role":"superuser"}`), &u)
	if !errors.Is(err, ErrUnknownEnum) {
		t.Fatalf("expected ErrUnknownEnum, got %v", err)
	}
}

func TestSessionUser_RoundTripsWireNames(t *testing.T) {
	raw := `{"id":"1","email":"t@church.org","role":"teacher","mustChangePassword":true,` +
		`"teacher":{"id":"t1","name":"Kim","status":"pending"}}`
	var u SessionUser
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if u.Role != RoleTeacher || !u.MustChangePassword {
		t.Fatalf("unexpected user: %+v", u)
	}
	if !u.PendingApproval() {
		t.Fatalf("expected pending approval")
	}

	out, err := json.Marshal(&u)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var back map[string]any
	_ = json.Unmarshal(out, &back)
	if back["role"] != "teacher" {
		t.Fatalf("expected role teacher, got %v", back["role"])
	}
}

func TestSessionUser_PendingApprovalWithoutProfile(t *testing.T) {
	u := &SessionUser{Role: RoleTeacher}
	if u.PendingApproval() {
		t.Fatalf("teacher without profile is not pending")
	}
	var nilUser *SessionUser
	if nilUser.PendingApproval() {
		t.Fatalf("nil user is not pending")
	}
}

func TestSelectRecipients(t *testing.T) {
	students := []Student{
		{ID: "s1", Name: "Mina", Phone: "010-1111-2222", ParentPhone: "010-9999-0000", MokjangID: "m1"},
		{ID: "s2", Name: "Jun", Phone: "", MokjangID: "m1"},
		{ID: "s3", Name: "Hana", Phone: "01011112222", MokjangID: "m2"},
		{ID: "s4", Name: "Bora", Phone: "010 3333 4444", MokjangID: "m2"},
	}
	ministries := []Ministry{{ID: "w", Name: "Worship", StudentIDs: []string{"s1", "s4"}}}

	all := SelectRecipients(students, ministries, RecipientFilter{})
	if len(all) != 2 {
		t.Fatalf("expected duplicate phone collapsed, got %+v", all)
	}

	worship := SelectRecipients(students, ministries, RecipientFilter{MinistryID: "w", IncludeParents: true})
	if len(worship) != 3 {
		t.Fatalf("expected Mina, her parent and Bora, got %+v", worship)
	}
	if worship[0].Name != "Bora" || worship[0].Phone != "01033334444" {
		t.Fatalf("unexpected first recipient: %+v", worship[0])
	}

	if got := SelectRecipients(students, ministries, RecipientFilter{MinistryID: "missing"}); got != nil {
		t.Fatalf("expected nil for unknown ministry, got %+v", got)
	}
}
