package pageimage

import (
	"testing"

	"github.com/platinummonkey/emend/internal/page"
)

func TestBuildLayout_SingleBlock(t *testing.T) {
	text := "A beautiful\nmorning came.\n"
	marks := []glyphMark{
		{offset: 0, box: page.NewRect(72, 72, 8, 12)},
		{offset: 2, box: page.NewRect(84, 72, 60, 12)},
		{offset: 12, box: page.NewRect(72, 86, 50, 12)},
		{offset: 20, box: page.NewRect(126, 86, 40, 12)},
	}

	pg := buildLayout(1, 612, 792, text, marks)

	if len(pg.Blocks) != 1 {
		t.Fatalf("blocks = %d, want 1", len(pg.Blocks))
	}
	block := pg.Blocks[0]
	if len(block.Lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(block.Lines))
	}

	if block.Lines[0].Text != "A beautiful" {
		t.Errorf("line 0 text = %q", block.Lines[0].Text)
	}
	if block.Lines[1].Text != "morning came." {
		t.Errorf("line 1 text = %q", block.Lines[1].Text)
	}
	if block.Lines[0].Number != 0 || block.Lines[1].Number != 1 {
		t.Errorf("line numbers = %d, %d, want 0, 1", block.Lines[0].Number, block.Lines[1].Number)
	}

	// Line box is the union of its glyph boxes
	want := page.NewRect(72, 72, 72, 12)
	if block.Lines[0].BBox != want {
		t.Errorf("line 0 bbox = %+v, want %+v", block.Lines[0].BBox, want)
	}

	// Block box covers both lines
	if block.BBox.X != 72 || block.BBox.Y != 72 || block.BBox.Right() != 166 || block.BBox.Bottom() != 98 {
		t.Errorf("block bbox = %+v", block.BBox)
	}
}

func TestBuildLayout_GapStartsNewBlock(t *testing.T) {
	// A running header far above the body text
	text := "64 THE CITY\nThe morning was clear.\nThe evening came.\n"
	marks := []glyphMark{
		{offset: 0, box: page.NewRect(72, 36, 120, 10)},
		{offset: 12, box: page.NewRect(72, 120, 200, 12)},
		{offset: 35, box: page.NewRect(72, 134, 180, 12)},
	}

	pg := buildLayout(1, 612, 792, text, marks)

	if len(pg.Blocks) != 2 {
		t.Fatalf("blocks = %d, want 2", len(pg.Blocks))
	}
	if len(pg.Blocks[0].Lines) != 1 {
		t.Errorf("header block lines = %d, want 1", len(pg.Blocks[0].Lines))
	}
	if len(pg.Blocks[1].Lines) != 2 {
		t.Errorf("body block lines = %d, want 2", len(pg.Blocks[1].Lines))
	}

	// Line numbers run across blocks
	if got := pg.Blocks[1].Lines[0].Number; got != 1 {
		t.Errorf("first body line number = %d, want 1", got)
	}
}

func TestBuildLayout_ColumnJumpStartsNewBlock(t *testing.T) {
	// Reading order moves back up the page at a column break
	text := "end of first column\ntop of second column\n"
	marks := []glyphMark{
		{offset: 0, box: page.NewRect(72, 700, 180, 12)},
		{offset: 20, box: page.NewRect(320, 72, 180, 12)},
	}

	pg := buildLayout(1, 612, 792, text, marks)

	if len(pg.Blocks) != 2 {
		t.Fatalf("blocks = %d, want 2", len(pg.Blocks))
	}
}

func TestBuildLayout_UnsortedMarks(t *testing.T) {
	text := "one two\n"
	marks := []glyphMark{
		{offset: 4, box: page.NewRect(100, 72, 30, 12)},
		{offset: 0, box: page.NewRect(72, 72, 24, 12)},
	}

	pg := buildLayout(1, 612, 792, text, marks)

	if pg.LineCount() != 1 {
		t.Fatalf("lines = %d, want 1", pg.LineCount())
	}
	got := pg.Blocks[0].Lines[0].BBox
	if got.X != 72 || got.Right() != 130 {
		t.Errorf("line bbox = %+v, want x 72..130", got)
	}
}

func TestBuildLayout_SkipsLinesWithoutGeometry(t *testing.T) {
	text := "First paragraph.\n\nSecond paragraph.\n"
	marks := []glyphMark{
		{offset: 0, box: page.NewRect(72, 72, 140, 12)},
		{offset: 18, box: page.NewRect(72, 86, 150, 12)},
	}

	pg := buildLayout(1, 612, 792, text, marks)

	if pg.LineCount() != 2 {
		t.Fatalf("lines = %d, want 2 (blank line dropped)", pg.LineCount())
	}
}

func TestBuildLayout_TrimsTrailingWhitespace(t *testing.T) {
	text := "word   \n"
	marks := []glyphMark{
		{offset: 0, box: page.NewRect(72, 72, 40, 12)},
	}

	pg := buildLayout(1, 612, 792, text, marks)

	if got := pg.Blocks[0].Lines[0].Text; got != "word" {
		t.Errorf("line text = %q, want %q", got, "word")
	}
}

func TestBuildLayout_NoMarks(t *testing.T) {
	pg := buildLayout(3, 612, 792, "ghost text\n", nil)

	if len(pg.Blocks) != 0 {
		t.Errorf("blocks = %d, want 0", len(pg.Blocks))
	}
	if pg.Number != 3 {
		t.Errorf("page number = %d, want 3", pg.Number)
	}
}

func TestUnion(t *testing.T) {
	tests := []struct {
		name string
		a, b page.Rect
		want page.Rect
	}{
		{
			name: "disjoint",
			a:    page.NewRect(0, 0, 10, 10),
			b:    page.NewRect(20, 20, 10, 10),
			want: page.NewRect(0, 0, 30, 30),
		},
		{
			name: "contained",
			a:    page.NewRect(0, 0, 100, 100),
			b:    page.NewRect(10, 10, 5, 5),
			want: page.NewRect(0, 0, 100, 100),
		},
		{
			name: "overlapping",
			a:    page.NewRect(0, 0, 10, 10),
			b:    page.NewRect(5, 5, 10, 10),
			want: page.NewRect(0, 0, 15, 15),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := union(tt.a, tt.b); got != tt.want {
				t.Errorf("union() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
