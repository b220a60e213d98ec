package models

import "testing"

func TestPasswordHashing(t *testing.T) {
	u := &User{Password: "s3cret-pass"}
	if err := u.HashPassword(); err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}
	if u.Password == "s3cret-pass" {
		t.Fatal("password was not hashed")
	}
	if !u.CheckPassword("s3cret-pass") {
		t.Error("CheckPassword rejected the correct password")
	}
	if u.CheckPassword("wrong-pass") {
		t.Error("CheckPassword accepted a wrong password")
	}
}
