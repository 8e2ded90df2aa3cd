// Package script defines the structured demo walkthrough produced by
// the generative model, the prompt that asks for it, and the shape
// validation applied to the model's raw output.
package script

// Step is one demonstrable action in a walkthrough.
type Step struct {
	StepTitle       string `json:"step_title"`
	Action          string `json:"action"`
	UIInteraction   string `json:"ui_interaction"`
	PresenterScript string `json:"presenter_script"`
}

// DemoScript is the structured walkthrough for presenting a product
// to a customer. Title and Steps are mandatory; everything else is
// prose the model fills in.
type DemoScript struct {
	Summary       string   `json:"summary"`
	Title         string   `json:"title"`
	Introduction  string   `json:"introduction"`
	Prerequisites []string `json:"prerequisites"`
	Steps         []Step   `json:"steps"`
}
