// Package logs contains AWS::Logs resource types.
package logs

// LogGroup is AWS::Logs::LogGroup.
type LogGroup struct {
	LogGroupName    any `json:"LogGroupName,omitempty"`
	RetentionInDays int `json:"RetentionInDays,omitempty"`
}

func (LogGroup) ResourceType() string { return "AWS::Logs::LogGroup" }

// OneWeek is the RetentionInDays value for seven days of retention.
const OneWeek = 7
