package survey

import "testing"

func TestParseActions(t *testing.T) {
	cases := []struct {
		tokens []string
		want   Action
	}{
		{[]string{"dock", "bumble", "berth1"}, Action{Kind: KindDock, Robot: "bumble", Berth: "berth1"}},
		{[]string{"undock", "honey"}, Action{Kind: KindUndock, Robot: "honey"}},
		{[]string{"move", "bumble", "jem_bay0", "jem_bay1"}, Action{Kind: KindMove, Robot: "bumble", From: "jem_bay0", To: "jem_bay1"}},
		{[]string{"panorama", "bumble", "jem_bay4"}, Action{Kind: KindPanorama, Robot: "bumble", Location: "jem_bay4"}},
		{[]string{"stereo", "bumble", "jem/stereo_survey"}, Action{Kind: KindStereo, Robot: "bumble", Plan: "jem/stereo_survey"}},
	}
	for _, tc := range cases {
		got, err := Parse(tc.tokens)
		if err != nil {
			t.Errorf("Parse(%v): %v", tc.tokens, err)
			continue
		}
		if got != tc.want {
			t.Errorf("Parse(%v) = %+v, want %+v", tc.tokens, got, tc.want)
		}
	}
}

func TestParseRejectsBadTokens(t *testing.T) {
	cases := [][]string{
		nil,
		{"teleport", "bumble"},
		{"dock", "bumble"},
		{"undock"},
		{"move", "bumble", "jem_bay0"},
	}
	for _, tokens := range cases {
		if _, err := Parse(tokens); err == nil {
			t.Errorf("Parse(%v) accepted bad input", tokens)
		}
	}
}

func TestNamespace(t *testing.T) {
	if ns := Namespace("bumble", "bumble"); ns != " -remote" {
		t.Errorf("same robot ns = %q", ns)
	}
	if ns := Namespace("bumble", "honey"); ns != " -remote -ns honey" {
		t.Errorf("foreign robot ns = %q", ns)
	}
}
