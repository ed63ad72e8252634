package feedback

import (
	"context"
	"fmt"
	"strings"
	"unicode"
)

// culturalMarkers are words that signal the writer is drawing on a Korean setting.
var culturalMarkers = []string{
	"korea", "korean", "seoul", "busan", "hagwon", "chuseok", "seollal", "suneung",
	"kimchi", "hanbok", "jeong", "nunchi", "grandmother", "halmeoni", "한국", "추석", "설날", "수능", "학원",
}

// Heuristic writes rule-based feedback from simple text statistics.
type Heuristic struct{}

// NewHeuristic returns the rule-based generator
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// Provider implements Generator
func (h *Heuristic) Provider() string {
	return "heuristic"
}

type textStats struct {
	words          int
	sentences      int
	firstPerson    int
	hasNumbers     bool
	culturalTerms  int
	longestSentence int
}

func analyze(text string) textStats {
	var st textStats
	lower := strings.ToLower(text)

	for _, w := range strings.Fields(lower) {
		st.words++
		switch strings.TrimFunc(w, func(r rune) bool { return !unicode.IsLetter(r) }) {
		case "i", "my", "me", "mine", "myself", "나", "나는", "내가":
			st.firstPerson++
		}
	}

	run := 0
	for _, r := range text {
		if unicode.IsDigit(r) {
			st.hasNumbers = true
		}
		if r == '.' || r == '!' || r == '?' || r == '。' {
			st.sentences++
			run = 0
			continue
		}
		if unicode.IsSpace(r) {
			run++
			if run > st.longestSentence {
				st.longestSentence = run
			}
		}
	}
	if st.sentences == 0 && st.words > 0 {
		st.sentences = 1
	}

	for _, m := range culturalMarkers {
		st.culturalTerms += strings.Count(lower, m)
	}
	return st
}

// Generate implements Generator
func (h *Heuristic) Generate(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Text) == "" {
		return "", ErrEmptyText
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	st := analyze(req.Text)
	ko := korean(req.Language)
	var notes []string
	add := func(en, kr string) {
		if ko {
			notes = append(notes, kr)
		} else {
			notes = append(notes, en)
		}
	}

	switch {
	case st.words < 80:
		add(fmt.Sprintf("At %d words this is a sketch. Expand the key moment with what you saw, heard and felt.", st.words),
			fmt.Sprintf("%d단어로 아직 초안 단계입니다. 핵심 순간에 보고 듣고 느낀 것을 더 자세히 적어 보세요.", st.words))
	case st.words > 650:
		add(fmt.Sprintf("At %d words this runs past the usual 650-word limit. Cut summary sentences first.", st.words),
			fmt.Sprintf("%d단어로 일반적인 650단어 제한을 넘습니다. 요약 문장부터 줄여 보세요.", st.words))
	default:
		add(fmt.Sprintf("Length is workable at %d words.", st.words),
			fmt.Sprintf("분량(%d단어)은 적절합니다.", st.words))
	}

	if avg := st.words / st.sentences; avg > 28 || st.longestSentence > 40 {
		add("Several sentences are long. Split them so each carries one idea.",
			"긴 문장이 많습니다. 한 문장에 한 가지 생각만 담도록 나눠 보세요.")
	}

	if st.firstPerson == 0 {
		add("The writer barely appears. Admissions readers want your actions and reflections in the first person.",
			"글쓴이의 모습이 잘 드러나지 않습니다. 1인칭으로 본인의 행동과 생각을 보여 주세요.")
	}

	if !st.hasNumbers {
		add("Add one concrete detail such as a date, a number or a place to anchor the story.",
			"날짜, 숫자, 장소 같은 구체적인 디테일을 하나 더해 이야기에 무게를 실어 보세요.")
	}

	if req.Kind == KindCulturalFit {
		if st.culturalTerms == 0 {
			add("Your Korean background does not come through yet. Name a specific custom, place or family moment and explain what it taught you.",
				"한국적 배경이 아직 드러나지 않습니다. 구체적인 풍습, 장소, 가족과의 순간을 소개하고 그것이 준 배움을 설명해 보세요.")
		} else {
			add("Your Korean context is present. Briefly explain any Korean terms so a U.S. reader can follow without losing the nuance.",
				"한국적 맥락이 잘 드러납니다. 미국 입학사정관이 이해할 수 있도록 한국어 용어는 짧게 풀어 설명해 주세요.")
		}
	}

	prefix := "- "
	return prefix + strings.Join(notes, "\n"+prefix), nil
}
