package i18n

import (
	"context"
	"strings"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	loc := NewLocalizer(lang)
	return WithLocalizer(context.Background(), loc)
}

func TestFeedbackEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "FeedbackBrief")
	if got != "Try to elaborate a bit more next time." {
		t.Errorf("T(FeedbackBrief) = %q", got)
	}

	got = T(ctx, "FeedbackOutstanding")
	if !strings.HasPrefix(got, "Outstanding") {
		t.Errorf("T(FeedbackOutstanding) = %q", got)
	}
}

func TestFeedbackRussian(t *testing.T) {
	ctx := initLang(t, "ru")

	got := T(ctx, "FeedbackBrief")
	if got != "В следующий раз постарайтесь ответить подробнее." {
		t.Errorf("T(FeedbackBrief) = %q", got)
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "SessionWelcome", map[string]any{"Name": "Alice", "Mode": "collaborative"})
	if got != "Welcome, Alice! Starting a collaborative session." {
		t.Errorf("Td(SessionWelcome) = %q", got)
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got1 := Tp(ctx, "SessionRounds", 1)
	if got1 != "1 round completed" {
		t.Errorf("Tp(SessionRounds, 1) = %q", got1)
	}

	got5 := Tp(ctx, "SessionRounds", 5)
	if got5 != "5 rounds completed" {
		t.Errorf("Tp(SessionRounds, 5) = %q", got5)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "NonExistentKey")
	if got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}
