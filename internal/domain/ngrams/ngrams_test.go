package ngrams

import (
	"reflect"
	"testing"

	"github.com/forPelevin/supercut/internal/types"
)

func TestWords(t *testing.T) {
	tracks := []types.Track{
		{Kind: types.TrackCues, Spans: []types.TextSpan{
			{Text: "Hello, world! Hello"},
			{Text: `"again" there`},
		}},
		{Kind: types.TrackTranscript, Spans: []types.TextSpan{
			{Text: "word level", Words: []types.Word{{Text: "word"}, {Text: "level"}}},
		}},
	}
	got := Words(tracks)
	want := []string{"Hello", "world", "Hello", "again", "there", "word", "level"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Words = %q, want %q", got, want)
	}
}

func TestMostCommon(t *testing.T) {
	words := []string{"a", "b", "a", "b", "c", "a", "b"}

	bi := MostCommon(words, 2, 100)
	if bi[0].String() != "a b" || bi[0].Count != 3 {
		t.Fatalf("top bigram = %+v", bi[0])
	}
	if len(bi) != 4 {
		t.Fatalf("expected 4 distinct bigrams, got %+v", bi)
	}
	// b a and b c and c a each occur once; first-seen order is kept
	if bi[1].String() != "b a" || bi[2].String() != "b c" || bi[3].String() != "c a" {
		t.Fatalf("unexpected tie order %+v", bi)
	}

	if got := MostCommon(words, 1, 2); len(got) != 2 || got[0].String() != "a" || got[1].String() != "b" {
		t.Fatalf("unigrams = %+v", got)
	}
	if got := MostCommon(words, 8, 10); got != nil {
		t.Fatalf("expected nil for n > len(words), got %+v", got)
	}
}
