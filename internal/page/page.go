// Package page models the per-page layout the upstream PDF extraction
// hands to the pipeline: blocks of lines with point-space geometry.
package page

import "strings"

// Rect represents a rectangular bounding box in PDF points
type Rect struct {
	// X is the left coordinate (points from left edge)
	X float64

	// Y is the top coordinate (points from top edge)
	Y float64

	// Width is the width of the rectangle in points
	Width float64

	// Height is the height of the rectangle in points
	Height float64
}

// Line represents one extracted text line with its position
type Line struct {
	// Text is the extracted text content of the line
	Text string

	// BBox is the position and size of the line on the page
	BBox Rect

	// Number is the line's index within its page (0-based)
	Number int
}

// Block represents one upstream layout block (body text, footnote,
// margin note). Line-break analysis never crosses block boundaries.
type Block struct {
	// ID identifies the block within its page
	ID int

	// BBox is the bounding box for the entire block
	BBox Rect

	// Lines contains the block's lines in reading order
	Lines []Line
}

// Page represents one extracted page
type Page struct {
	// Number is the page number (1-indexed)
	Number int

	// Width is the page width in points
	Width float64

	// Height is the page height in points
	Height float64

	// Blocks contains the page's layout blocks in reading order
	Blocks []Block
}

// NewRect creates a new Rect
func NewRect(x, y, width, height float64) Rect {
	return Rect{
		X:      x,
		Y:      y,
		Width:  width,
		Height: height,
	}
}

// Right returns the right edge coordinate
func (r Rect) Right() float64 {
	return r.X + r.Width
}

// Bottom returns the bottom edge coordinate
func (r Rect) Bottom() float64 {
	return r.Y + r.Height
}

// NewBlock creates a new Block
func NewBlock(id int, bbox Rect) *Block {
	return &Block{
		ID:    id,
		BBox:  bbox,
		Lines: []Line{},
	}
}

// AddLine appends a line to the block
func (b *Block) AddLine(line Line) {
	b.Lines = append(b.Lines, line)
}

// EndsFlushRight reports whether the line's right edge sits within
// tolerance of the block's right margin
func (b *Block) EndsFlushRight(line Line, tolerance float64) bool {
	return b.BBox.Right()-line.BBox.Right() <= tolerance
}

// StartsFlushLeft reports whether the line's left edge sits within
// tolerance of the block's left margin
func (b *Block) StartsFlushLeft(line Line, tolerance float64) bool {
	return line.BBox.X-b.BBox.X <= tolerance
}

// NewPage creates a new Page
func NewPage(number int, width, height float64) *Page {
	return &Page{
		Number: number,
		Width:  width,
		Height: height,
		Blocks: []Block{},
	}
}

// AddBlock appends a block to the page
func (p *Page) AddBlock(block Block) {
	p.Blocks = append(p.Blocks, block)
}

// Text concatenates all block lines into the page's plain text,
// one line per extracted line, blocks separated by a blank line
func (p *Page) Text() string {
	var sb strings.Builder
	for i, block := range p.Blocks {
		if i > 0 {
			sb.WriteString("\n")
		}
		for _, line := range block.Lines {
			sb.WriteString(line.Text)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// LineCount returns the total number of lines across all blocks
func (p *Page) LineCount() int {
	count := 0
	for _, block := range p.Blocks {
		count += len(block.Lines)
	}
	return count
}

// FindLine returns the line with the given page line number and the
// block containing it, or nil when no such line exists
func (p *Page) FindLine(number int) (*Block, *Line) {
	for i := range p.Blocks {
		for j := range p.Blocks[i].Lines {
			if p.Blocks[i].Lines[j].Number == number {
				return &p.Blocks[i], &p.Blocks[i].Lines[j]
			}
		}
	}
	return nil, nil
}
