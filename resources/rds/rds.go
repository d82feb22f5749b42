// Package rds contains AWS::RDS resource types.
package rds

// DBInstance is AWS::RDS::DBInstance.
type DBInstance struct {
	DBInstanceIdentifier     string `json:"DBInstanceIdentifier,omitempty"`
	DBName                   string `json:"DBName,omitempty"`
	Engine                   string `json:"Engine"`
	EngineVersion            string `json:"EngineVersion,omitempty"`
	DBInstanceClass          string `json:"DBInstanceClass"`
	AllocatedStorage         string `json:"AllocatedStorage,omitempty"`
	StorageType              string `json:"StorageType,omitempty"`
	StorageEncrypted         bool   `json:"StorageEncrypted,omitempty"`
	Port                     string `json:"Port,omitempty"`
	MultiAZ                  *bool  `json:"MultiAZ,omitempty"`
	PubliclyAccessible       *bool  `json:"PubliclyAccessible,omitempty"`
	DBParameterGroupName     any    `json:"DBParameterGroupName,omitempty"`
	DBSubnetGroupName        any    `json:"DBSubnetGroupName,omitempty"`
	VPCSecurityGroups        []any  `json:"VPCSecurityGroups,omitempty"`
	MasterUsername           string `json:"MasterUsername,omitempty"`
	ManageMasterUserPassword bool   `json:"ManageMasterUserPassword,omitempty"`
	CopyTagsToSnapshot       bool   `json:"CopyTagsToSnapshot,omitempty"`
	Tags                     []any  `json:"Tags,omitempty"`
}

func (DBInstance) ResourceType() string { return "AWS::RDS::DBInstance" }

// DBParameterGroup is AWS::RDS::DBParameterGroup.
type DBParameterGroup struct {
	DBParameterGroupName string            `json:"DBParameterGroupName,omitempty"`
	Description          string            `json:"Description"`
	Family               string            `json:"Family"`
	Parameters           map[string]string `json:"Parameters,omitempty"`
	Tags                 []any             `json:"Tags,omitempty"`
}

func (DBParameterGroup) ResourceType() string { return "AWS::RDS::DBParameterGroup" }

// DBSubnetGroup is AWS::RDS::DBSubnetGroup.
type DBSubnetGroup struct {
	DBSubnetGroupName        string `json:"DBSubnetGroupName,omitempty"`
	DBSubnetGroupDescription string `json:"DBSubnetGroupDescription"`
	SubnetIds                []any  `json:"SubnetIds"`
	Tags                     []any  `json:"Tags,omitempty"`
}

func (DBSubnetGroup) ResourceType() string { return "AWS::RDS::DBSubnetGroup" }
