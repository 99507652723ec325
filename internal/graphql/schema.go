// Package graphql exposes the registration and verification workflows as a
// GraphQL schema. Operations are collected in an explicit registry and the
// schema is assembled from it, so adding an operation is one registration
// call rather than a schema rewrite.
package graphql

import (
	"errors"

	"github.com/graphql-go/graphql"

	"chrometour/internal/user/service"
	dErrors "chrometour/pkg/domain-errors"
	"chrometour/pkg/requestcontext"
)

// Registry aggregates query and mutation fields before schema assembly.
type Registry struct {
	queries   graphql.Fields
	mutations graphql.Fields
}

func NewRegistry() *Registry {
	return &Registry{
		queries:   graphql.Fields{},
		mutations: graphql.Fields{},
	}
}

func (r *Registry) Query(name string, field *graphql.Field) {
	r.queries[name] = field
}

func (r *Registry) Mutation(name string, field *graphql.Field) {
	r.mutations[name] = field
}

// Schema assembles the registered operations into an executable schema.
func (r *Registry) Schema() (graphql.Schema, error) {
	return graphql.NewSchema(graphql.SchemaConfig{
		Query: graphql.NewObject(graphql.ObjectConfig{
			Name:   "Query",
			Fields: r.queries,
		}),
		Mutation: graphql.NewObject(graphql.ObjectConfig{
			Name:   "Mutation",
			Fields: r.mutations,
		}),
	})
}

// NewSchema builds the full API schema over the user service.
func NewSchema(svc *service.Service) (graphql.Schema, error) {
	reg := NewRegistry()
	registerUserOperations(reg, svc)
	return reg.Schema()
}

func registerUserOperations(reg *Registry, svc *service.Service) {
	reg.Query("users", &graphql.Field{
		Type:        graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(userType))),
		Description: "All users in the system.",
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			users, err := svc.List(p.Context)
			if err != nil {
				return nil, resolverError(err)
			}
			return users, nil
		},
	})

	reg.Mutation("registerUser", &graphql.Field{
		Type:        graphql.NewNonNull(userType),
		Description: "Register a new user and send a verification code.",
		Args: graphql.FieldConfigArgument{
			"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(registerInputType)},
		},
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			input, _ := p.Args["input"].(map[string]interface{})

			in := service.RegisterInput{
				Username:    stringArg(input, "username"),
				Email:       stringArg(input, "email"),
				PhoneNumber: stringArg(input, "phoneNumber"),
				Password:    stringArg(input, "password"),

				RegistrationIP:       stringArg(input, "registrationIp"),
				UserAgent:            stringArg(input, "userAgent"),
				RegisteredVia:        stringArg(input, "registeredVia"),
				RegistrationReferrer: stringArg(input, "registrationReferrer"),
			}
			if in.RegistrationIP == "" {
				in.RegistrationIP = requestcontext.ClientIP(p.Context)
			}
			if in.UserAgent == "" {
				in.UserAgent = requestcontext.UserAgent(p.Context)
			}
			if in.RegistrationReferrer == "" {
				in.RegistrationReferrer = requestcontext.Referrer(p.Context)
			}

			registered, err := svc.Register(p.Context, in)
			if err != nil {
				return nil, resolverError(err)
			}
			return registered, nil
		},
	})

	reg.Mutation("verifyUser", &graphql.Field{
		Type:        graphql.NewNonNull(userType),
		Description: "Verify a user by email or phone number using the emailed code.",
		Args: graphql.FieldConfigArgument{
			"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(verifyInputType)},
		},
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			input, _ := p.Args["input"].(map[string]interface{})

			verified, err := svc.Verify(p.Context,
				stringArg(input, "email"),
				stringArg(input, "verificationCode"),
			)
			if err != nil {
				return nil, resolverError(err)
			}
			return verified, nil
		},
	})
}

// codedError carries the domain error code into the GraphQL error extensions
// while keeping the client-facing message as the error text.
type codedError struct {
	err  *dErrors.Error
	code dErrors.Code
}

func (e *codedError) Error() string {
	return e.err.Error()
}

func (e *codedError) Unwrap() error {
	return e.err
}

func (e *codedError) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": string(e.code)}
}

func resolverError(err error) error {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		return &codedError{err: domainErr, code: domainErr.Code}
	}
	return err
}
