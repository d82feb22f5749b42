// Package secretsmanager contains AWS::SecretsManager resource types.
package secretsmanager

// Secret is AWS::SecretsManager::Secret.
//
// Exactly one of GenerateSecretString and SecretString is set.
type Secret struct {
	Name                 string                       `json:"Name,omitempty"`
	Description          string                       `json:"Description,omitempty"`
	GenerateSecretString *Secret_GenerateSecretString `json:"GenerateSecretString,omitempty"`
	SecretString         any                          `json:"SecretString,omitempty"`
	Tags                 []any                        `json:"Tags,omitempty"`
}

func (Secret) ResourceType() string { return "AWS::SecretsManager::Secret" }

// Secret_GenerateSecretString asks Secrets Manager to generate the secret value.
type Secret_GenerateSecretString struct {
	PasswordLength       int    `json:"PasswordLength,omitempty"`
	ExcludePunctuation   bool   `json:"ExcludePunctuation,omitempty"`
	ExcludeCharacters    string `json:"ExcludeCharacters,omitempty"`
	IncludeSpace         bool   `json:"IncludeSpace,omitempty"`
	SecretStringTemplate string `json:"SecretStringTemplate,omitempty"`
	GenerateStringKey    string `json:"GenerateStringKey,omitempty"`
}
