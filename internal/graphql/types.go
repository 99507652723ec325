package graphql

import (
	"github.com/graphql-go/graphql"

	"chrometour/internal/user"
)

// userType is the only object type the API exposes. It mirrors
// user.Sanitized: no password hash, no verification code.
var userType = graphql.NewObject(graphql.ObjectConfig{
	Name:        "User",
	Description: "A registered user, stripped of all sensitive fields.",
	Fields: graphql.Fields{
		"id": &graphql.Field{
			Type: graphql.NewNonNull(graphql.Int),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return sanitized(p).ID, nil
			},
		},
		"username": &graphql.Field{
			Type: graphql.NewNonNull(graphql.String),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return sanitized(p).Username, nil
			},
		},
		"email": &graphql.Field{
			Type: graphql.NewNonNull(graphql.String),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return sanitized(p).Email, nil
			},
		},
		"isActive": &graphql.Field{
			Type: graphql.NewNonNull(graphql.Boolean),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return sanitized(p).IsActive, nil
			},
		},
		"emailVerified": &graphql.Field{
			Type: graphql.NewNonNull(graphql.Boolean),
			Resolve: func(p graphql.ResolveParams) (interface{}, error) {
				return sanitized(p).EmailVerified, nil
			},
		},
	},
})

func sanitized(p graphql.ResolveParams) *user.Sanitized {
	u, _ := p.Source.(*user.Sanitized)
	if u == nil {
		return &user.Sanitized{}
	}
	return u
}

var registerInputType = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "UserRegisterInput",
	Fields: graphql.InputObjectConfigFieldMap{
		"username":    &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		"email":       &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		"phoneNumber": &graphql.InputObjectFieldConfig{Type: graphql.String},
		"password":    &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},

		// Registration metadata. When omitted, the values captured by the
		// transport middleware are used instead.
		"registrationIp":       &graphql.InputObjectFieldConfig{Type: graphql.String},
		"userAgent":            &graphql.InputObjectFieldConfig{Type: graphql.String},
		"registeredVia":        &graphql.InputObjectFieldConfig{Type: graphql.String},
		"registrationReferrer": &graphql.InputObjectFieldConfig{Type: graphql.String},
	},
})

var verifyInputType = graphql.NewInputObject(graphql.InputObjectConfig{
	Name: "UserVerifyInput",
	Fields: graphql.InputObjectConfigFieldMap{
		// Accepts the registered email or phone number.
		"email":            &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		"verificationCode": &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
	},
})

// stringArg reads an optional string field out of a decoded input object.
func stringArg(input map[string]interface{}, key string) string {
	if v, ok := input[key].(string); ok {
		return v
	}
	return ""
}
