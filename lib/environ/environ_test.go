// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package environ

import (
	"slices"
	"testing"
)

func TestGetLastWins(t *testing.T) {
	env := []string{"PATH=/bin", "CC=gcc", "PATH=/usr/bin"}

	value, ok := Get(env, "PATH")
	if !ok || value != "/usr/bin" {
		t.Errorf("Get(PATH) = %q, %v; want /usr/bin, true", value, ok)
	}
	if _, ok := Get(env, "CXX"); ok {
		t.Error("Get(CXX) reported present")
	}
	// A key that is a prefix of another must not match it.
	if _, ok := Get([]string{"CCACHE=1"}, "CC"); ok {
		t.Error("Get(CC) matched CCACHE")
	}
}

func TestSetReplacesAllBindings(t *testing.T) {
	original := []string{"CC=gcc", "HOME=/home/u", "CC=clang"}
	result := Set(original, "CC", "/shim/cc")

	if !slices.Equal(result, []string{"HOME=/home/u", "CC=/shim/cc"}) {
		t.Errorf("Set = %v", result)
	}
	if original[0] != "CC=gcc" {
		t.Error("Set modified its input")
	}
}

func TestCapture(t *testing.T) {
	env := []string{
		"CPATH=/opt/include",
		"HOME=/home/u",
		"SDKROOT=/sdk",
		"MY_FLAG=1",
	}

	captured := Capture(env, []string{"MY_FLAG", "", "ABSENT"})
	want := map[string]string{"CPATH": "/opt/include", "SDKROOT": "/sdk", "MY_FLAG": "1"}
	if len(captured) != len(want) {
		t.Fatalf("Capture = %v, want %v", captured, want)
	}
	for key, value := range want {
		if captured[key] != value {
			t.Errorf("captured[%s] = %q, want %q", key, captured[key], value)
		}
	}

	if Capture([]string{"HOME=/home/u"}, nil) != nil {
		t.Error("Capture with no relevant keys should return nil")
	}
}

func TestParseKeyList(t *testing.T) {
	keys := ParseKeyList(" FOO, BAR ,,BAZ ")
	if !slices.Equal(keys, []string{"FOO", "BAR", "BAZ"}) {
		t.Errorf("ParseKeyList = %v", keys)
	}
	if ParseKeyList("") != nil {
		t.Error("ParseKeyList(\"\") should be nil")
	}
}

func TestPrependPath(t *testing.T) {
	env := []string{"PATH=/usr/bin:/shim:/bin"}
	result := PrependPath(env, "/shim/")

	value, _ := Get(result, "PATH")
	if value != "/shim/:/usr/bin:/bin" {
		t.Errorf("PATH = %q", value)
	}

	result = PrependPath(nil, "/shim")
	value, _ = Get(result, "PATH")
	if value != "/shim" {
		t.Errorf("PATH from empty env = %q", value)
	}
}

func TestSearchPath(t *testing.T) {
	entries := SearchPath("/shim:/usr/bin::/bin:/shim/", "/shim", "")
	if !slices.Equal(entries, []string{"/usr/bin", ".", "/bin"}) {
		t.Errorf("SearchPath = %v", entries)
	}
}

func TestOverridesRoundtrip(t *testing.T) {
	overrides := map[string]string{
		"gcc-13": "/opt/gcc/bin/gcc-13",
		"cc":     "/usr/local/bin:odd/cc",
	}
	encoded := FormatOverrides(overrides)
	if encoded != "cc=/usr/local/bin:odd/cc\ngcc-13=/opt/gcc/bin/gcc-13" {
		t.Errorf("FormatOverrides = %q", encoded)
	}

	decoded := ParseOverrides(encoded + "\nmalformed\n=nope\nempty=")
	if len(decoded) != 2 {
		t.Fatalf("ParseOverrides = %v", decoded)
	}
	for name, path := range overrides {
		if decoded[name] != path {
			t.Errorf("decoded[%s] = %q, want %q", name, decoded[name], path)
		}
	}
}

func TestAddPreload(t *testing.T) {
	tests := []struct {
		name    string
		goos    string
		env     []string
		want    map[string]string
		absent  []string
		library string
	}{
		{
			name:    "linux fresh",
			goos:    "linux",
			library: "/usr/$LIB/compiledb/libintercept.so",
			want:    map[string]string{"LD_PRELOAD": "/usr/$LIB/compiledb/libintercept.so"},
		},
		{
			name:    "linux keeps existing",
			goos:    "linux",
			env:     []string{"LD_PRELOAD=/lib/libasan.so"},
			library: "/lib/libintercept.so",
			want:    map[string]string{"LD_PRELOAD": "/lib/libintercept.so:/lib/libasan.so"},
		},
		{
			name:    "linux already present",
			goos:    "linux",
			env:     []string{"LD_PRELOAD=/lib/libasan.so /lib/libintercept.so"},
			library: "/lib/libintercept.so",
			want:    map[string]string{"LD_PRELOAD": "/lib/libasan.so /lib/libintercept.so"},
		},
		{
			name:    "darwin",
			goos:    "darwin",
			library: "/usr/local/lib/libintercept.dylib",
			want: map[string]string{
				"DYLD_INSERT_LIBRARIES":     "/usr/local/lib/libintercept.dylib",
				"DYLD_FORCE_FLAT_NAMESPACE": "1",
			},
		},
		{
			name:    "unsupported platform",
			goos:    "windows",
			library: "intercept.dll",
			absent:  []string{"LD_PRELOAD", "DYLD_INSERT_LIBRARIES"},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := AddPreload(test.env, test.goos, test.library)
			for key, want := range test.want {
				got, ok := Get(result, key)
				if !ok || got != want {
					t.Errorf("%s = %q, %v; want %q", key, got, ok, want)
				}
			}
			for _, key := range test.absent {
				if _, ok := Get(result, key); ok {
					t.Errorf("%s unexpectedly set", key)
				}
			}
		})
	}
}

func TestChainRoundtrip(t *testing.T) {
	chain := Chain{PID: 4242, Delegated: []string{"/usr/lib/ccache/cc", "/opt/odd:dir/cc"}}
	encoded := FormatChain(chain)
	if encoded != "4242\n/usr/lib/ccache/cc\n/opt/odd:dir/cc" {
		t.Errorf("FormatChain = %q", encoded)
	}

	decoded := ParseChain(encoded)
	if decoded.PID != 4242 || !slices.Equal(decoded.Delegated, chain.Delegated) {
		t.Errorf("ParseChain = %+v, want %+v", decoded, chain)
	}

	for _, malformed := range []string{"", "abc\n/usr/bin/cc", "-3", "0\n/usr/bin/cc"} {
		if got := ParseChain(malformed); got.PID != 0 || got.Delegated != nil {
			t.Errorf("ParseChain(%q) = %+v, want zero", malformed, got)
		}
	}
}
