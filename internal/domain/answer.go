package domain

// NoConfidentAnswer replaces the answer when nothing clears the threshold.
const NoConfidentAnswer = "No confident answer found."

// Extraction is what an extractive QA model returns for one context.
type Extraction struct {
	Answer string
	Score  float64
	Start  int
	End    int
}

// Candidate is a non-empty extraction paired with where it came from.
type Candidate struct {
	Text       string
	Confidence float64
	Context    string
	Payload    Payload
}

// Answer is the selected result of a QA request.
type Answer struct {
	Text       string
	Confidence float64
	Excerpt    *string // nil when no confident answer was found
	Confident  bool
}
