package ui

import (
	"github.com/AlecAivazis/survey/v2"
)

// Confirm asks the operator to approve a destructive action. Defaults to no.
func Confirm(message string) (bool, error) {
	confirmed := false
	prompt := &survey.Confirm{
		Message: message,
		Default: false,
	}
	if err := survey.AskOne(prompt, &confirmed); err != nil {
		return false, err
	}
	return confirmed, nil
}
