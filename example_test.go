package formguard_test

import (
	"context"
	"fmt"

	"github.com/aretw0/formguard"
	"github.com/aretw0/formguard/pkg/catalog"
	"github.com/aretw0/formguard/pkg/schema"
)

func Example() {
	eng, err := formguard.New()
	if err != nil {
		panic(err)
	}

	res, err := eng.Validate(context.Background(), catalog.AuthChangePassword, map[string]any{
		"currentPassword": "old-secret1",
		"newPassword":     "abc12345",
		"confirmPassword": "xyz99999",
	}, schema.Options{})
	if err != nil {
		panic(err)
	}

	fmt.Println("valid:", res.Valid())
	for _, fe := range res.Errors {
		fmt.Printf("%s: %s\n", fe.Path, fe.Message)
	}
	// Output:
	// valid: false
	// confirmPassword: Passwords don't match!
}
