package types

// Label is one entry of the classifier's label map.
type Label struct {
	// Output index of the class.
	// example: 4
	Index int `json:"index" example:"4"`
	// Class name.
	// example: Plastic
	Name string `json:"name" example:"Plastic"`
}
