package schema_test

import (
	"fmt"

	"github.com/kyleking/gem-support/internal/schema"
)

func ExampleQualifyColumns() {
	columns := []string{"id", "users.email"}

	fmt.Println(schema.QualifyColumns("users", columns, schema.NoAlias()))
	fmt.Println(schema.QualifyColumns("users", columns, schema.BareAlias()))
	fmt.Println(schema.QualifyColumns("users", columns, schema.PrefixAlias("u")))
	// Output:
	// [users.id users.email]
	// [users.id as id users.email as email]
	// [users.id as u_id users.email as u_email]
}

func ExampleDetectLength() {
	explicit := int64(191)

	fmt.Println(*schema.DetectLength("varchar", "varchar(191)", &explicit))
	fmt.Println(schema.DetectLength("enum", "enum('a','b')", nil) == nil)
	// Output:
	// 191
	// true
}
