package model

// Stage is one ordered phase of the project lifecycle. Stages are created
// once at process start from the catalog and never mutated.
type Stage struct {
	ID    string `json:"id"`
	Order int    `json:"order"`
	Name  string `json:"name"`
}
