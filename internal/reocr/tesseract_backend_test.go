package reocr

import (
	"testing"
)

const sampleHOCR = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">
 <body>
  <div class='ocr_page' id='page_1' title='image "line.png"; bbox 0 0 1000 60; ppageno 0'>
   <div class='ocr_carea' id='block_1_1' title="bbox 10 10 990 50">
    <p class='ocr_par' id='par_1_1' lang='eng' title="bbox 10 10 990 50">
     <span class='ocr_line' id='line_1_1' title="bbox 10 10 990 50; baseline 0 -5">
      <span class='ocrx_word' id='word_1_1' title='bbox 10 10 90 50; x_wconf 96'>It</span>
      <span class='ocrx_word' id='word_1_2' title='bbox 100 10 260 50; x_wconf 94'>was</span>
      <span class='ocrx_word' id='word_1_3' title='bbox 270 10 700 50; x_wconf 92'>beautiful</span>
     </span>
    </p>
   </div>
  </div>
 </body>
</html>`

const emptyHOCR = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml">
 <body>
  <div class='ocr_page' id='page_1' title='image "line.png"; bbox 0 0 1000 60; ppageno 0'>
  </div>
 </body>
</html>`

func TestParseHOCRLine(t *testing.T) {
	text, confidence, err := parseHOCRLine(sampleHOCR)
	if err != nil {
		t.Fatalf("parseHOCRLine() error = %v", err)
	}

	if text != "It was beautiful" {
		t.Errorf("text = %q, want %q", text, "It was beautiful")
	}

	// Mean of 96, 94, 92 on a 0..1 scale
	want := 0.94
	if diff := confidence - want; diff < -1e-9 || diff > 1e-9 {
		t.Errorf("confidence = %f, want %f", confidence, want)
	}
}

func TestParseHOCRLine_NoWords(t *testing.T) {
	text, confidence, err := parseHOCRLine(emptyHOCR)
	if err != nil {
		t.Fatalf("parseHOCRLine() error = %v", err)
	}
	if text != "" {
		t.Errorf("text = %q, want empty", text)
	}
	if confidence != 0 {
		t.Errorf("confidence = %f, want 0", confidence)
	}
}

func TestParseHOCRLine_InvalidXML(t *testing.T) {
	if _, _, err := parseHOCRLine("<html><body"); err == nil {
		t.Error("parseHOCRLine() should error on malformed XML")
	}
}

func TestExtractConfidence(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  float64
	}{
		{
			name:  "standard title",
			title: "bbox 10 10 90 50; x_wconf 96",
			want:  96.0,
		},
		{
			name:  "confidence only",
			title: "x_wconf 42",
			want:  42.0,
		},
		{
			name:  "missing confidence",
			title: "bbox 10 10 90 50",
			want:  0.0,
		},
		{
			name:  "empty title",
			title: "",
			want:  0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractConfidence(tt.title); got != tt.want {
				t.Errorf("extractConfidence(%q) = %f, want %f", tt.title, got, tt.want)
			}
		})
	}
}
