package domain

type Role struct {
	RoleID string `json:"id" dynamodbav:"role_id"`
	Name   string `json:"name" dynamodbav:"name"`
	Enable bool   `json:"enable" dynamodbav:"enable"`
}
