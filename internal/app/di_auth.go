package app

import (
	"fmt"

	"github.com/allisson/scimgate/internal/auth/introspection"
	"github.com/allisson/scimgate/internal/auth/policy"
)

// IntrospectionClient returns the token introspection client instance.
func (c *Container) IntrospectionClient() (*introspection.Client, error) {
	var err error
	c.introspectionClientInit.Do(func() {
		c.introspectionClient, err = introspection.NewClient(introspection.Config{
			BaseURL:               c.config.AuthServerURL,
			MaxConnections:        c.config.AuthServerMaxConnections,
			MaxConnectionsPerHost: c.config.AuthServerMaxConnectionsPerHost,
			ConnectTimeout:        c.config.AuthServerConnectTimeout,
			ReadTimeout:           c.config.AuthServerReadTimeout,
			CacheTTL:              c.config.IntrospectionCacheTTL,
		}, c.Logger())
		if err != nil {
			c.initErrors["introspectionClient"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["introspectionClient"]; exists {
		return nil, storedErr
	}
	return c.introspectionClient, nil
}

// PolicyTable returns the authorization rule table. When no policy file is
// configured the built-in table is used.
func (c *Container) PolicyTable() (*policy.Table, error) {
	var err error
	c.policyTableInit.Do(func() {
		if c.config.PolicyFile == "" {
			c.policyTable = policy.DefaultTable()
			return
		}
		c.policyTable, err = policy.LoadFile(c.config.PolicyFile)
		if err != nil {
			c.initErrors["policyTable"] = fmt.Errorf("failed to load policy file %q: %w", c.config.PolicyFile, err)
		}
	})
	if err != nil {
		return nil, c.initErrors["policyTable"]
	}
	if storedErr, exists := c.initErrors["policyTable"]; exists {
		return nil, storedErr
	}
	return c.policyTable, nil
}

// MethodScopes returns the HTTP-method-to-scope mapping used by the evaluator.
func (c *Container) MethodScopes() (policy.MethodScopes, error) {
	var err error
	c.methodScopesInit.Do(func() {
		if c.config.MethodScopes == "" {
			c.methodScopes = policy.DefaultMethodScopes()
			return
		}
		c.methodScopes, err = policy.ParseMethodScopes(c.config.MethodScopes)
		if err != nil {
			c.initErrors["methodScopes"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["methodScopes"]; exists {
		return nil, storedErr
	}
	return c.methodScopes, nil
}

// Evaluator returns the authorization decision evaluator.
func (c *Container) Evaluator() (*policy.Evaluator, error) {
	var err error
	c.evaluatorInit.Do(func() {
		var methodScopes policy.MethodScopes
		methodScopes, err = c.MethodScopes()
		if err != nil {
			c.initErrors["evaluator"] = err
			return
		}
		c.evaluator = policy.NewEvaluator(methodScopes, c.Logger())
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["evaluator"]; exists {
		return nil, storedErr
	}
	return c.evaluator, nil
}

// OwnerResolver returns the resource ownership resolver.
func (c *Container) OwnerResolver() policy.OwnerResolver {
	c.ownerResolverInit.Do(func() {
		c.ownerResolver = policy.PathOwnerResolver{}
	})
	return c.ownerResolver
}
