package catalog

import (
	"sync"
	"time"

	"github.com/aretw0/formguard/pkg/schema"
)

// Entity names of the built-in back-office schemas.
const (
	AuthLogin          = "auth.login"
	AuthChangePassword = "auth.change_password"
	AuthResetPassword  = "auth.reset_password"
	User               = "user"
	Role               = "role"
	Merchant           = "merchant"
	ChargeRule         = "charge_rule"
	Contract           = "contract"
	USSDMenu           = "ussd_menu"
	APIIntegration     = "api_integration"
)

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the registry of built-in entities. It is built once and
// shared; callers that need to add entities should Merge it into their own.
func Default() *Registry {
	defaultOnce.Do(func() {
		r := NewRegistry()
		r.MustRegister(AuthLogin, LoginSchema())
		r.MustRegister(AuthChangePassword, ChangePasswordSchema())
		r.MustRegister(AuthResetPassword, ResetPasswordSchema())
		r.MustRegister(User, UserSchema())
		r.MustRegister(Role, RoleSchema())
		r.MustRegister(Merchant, MerchantSchema())
		r.MustRegister(ChargeRule, ChargeRuleSchema())
		r.MustRegister(Contract, ContractSchema())
		r.MustRegister(USSDMenu, USSDMenuSchema())
		r.MustRegister(APIIntegration, APIIntegrationSchema())
		defaultRegistry = r
	})
	return defaultRegistry
}

// --- Auth ---

func LoginSchema() schema.ObjectRule {
	return schema.Object(
		schema.Field("username", schema.String().Trim().Min(3).RequiredMessage("Username is required")),
		schema.Field("password", schema.String().Min(1).RequiredMessage("Password is required")),
		schema.Field("rememberMe", schema.Boolean().Default(false)),
	)
}

func passwordPolicy() schema.StringRule {
	return schema.String().Min(8).Max(64).
		Pattern(`^(?:.*[A-Za-z].*[0-9]|.*[0-9].*[A-Za-z])`).
		Message("Password must be 8 to 64 characters and contain letters and digits")
}

func ChangePasswordSchema() schema.ObjectRule {
	return schema.Object(
		schema.Field("currentPassword", schema.String().Min(1).RequiredMessage("Current password is required")),
		schema.Field("newPassword", passwordPolicy()),
		schema.Field("confirmPassword", schema.String().RequiredMessage("Please confirm the new password")),
	).Refine(
		schema.Equal("newPassword", "confirmPassword", "Passwords don't match!"),
		schema.Check("password_changed", []string{"newPassword"}, "New password must differ from the current one",
			func(m map[string]any) bool { return m["newPassword"] != m["currentPassword"] }),
	)
}

func ResetPasswordSchema() schema.ObjectRule {
	return schema.Object(
		schema.Field("email", schema.String().Trim().Format(schema.FormatEmail).Message("Enter a valid email address")),
		schema.Field("otp", schema.String().Trim().Length(6).Pattern(`^\d{6}$`).Message("Enter the 6-digit code")),
		schema.Field("newPassword", passwordPolicy()),
		schema.Field("confirmPassword", schema.String().RequiredMessage("Please confirm the new password")),
	).Refine(schema.Equal("newPassword", "confirmPassword", "Passwords don't match!"))
}

// --- Users and roles ---

var scopes = []string{"SYSTEM", "BANK", "MERCHANT"}

func UserSchema() schema.ObjectRule {
	return schema.Object(
		schema.Field("firstName", schema.String().Trim().Min(2).Max(50)),
		schema.Field("lastName", schema.String().Trim().Min(2).Max(50)),
		schema.Field("email", schema.String().Trim().Format(schema.FormatEmail)),
		schema.Field("phoneNumber", schema.String().Trim().Format(schema.FormatE164).Optional().Nullable()),
		schema.Field("roleId", schema.String().Min(1).RequiredMessage("Role is required")),
		schema.Field("scope", schema.Enum(scopes...)),
		schema.Field("bankId", schema.String().Optional().Nullable()),
		schema.Field("merchantId", schema.String().Optional().Nullable()),
		schema.Field("status", schema.Enum("ACTIVE", "INACTIVE", "LOCKED").Default("ACTIVE")),
	).Refine(
		schema.RequiredWhen("bankId", "scope", []any{"BANK"}, "Bank is required for bank users"),
		schema.RequiredWhen("merchantId", "scope", []any{"MERCHANT"}, "Merchant is required for merchant users"),
	)
}

func RoleSchema() schema.ObjectRule {
	return schema.Object(
		schema.Field("name", schema.String().Trim().Min(2).Max(50)),
		schema.Field("description", schema.String().Max(255).Optional().Nullable()),
		schema.Field("scope", schema.Enum(scopes...)),
		schema.Field("permissions", schema.Array(schema.String().Min(1)).MinItems(1).
			Message("Select at least one permission")),
	)
}

// --- Merchants ---

func addressSchema() schema.ObjectRule {
	return schema.Object(
		schema.Field("street", schema.String().Trim().Optional()),
		schema.Field("city", schema.String().Trim().Min(2)),
		schema.Field("country", schema.String().Trim().Length(2).Pattern(`^[A-Z]{2}$`)),
		schema.Field("postalCode", schema.String().Trim().Optional().Nullable()),
	)
}

func settlementAccountSchema() schema.ObjectRule {
	return schema.Object(
		schema.Field("bankName", schema.String().Trim().Min(2)),
		schema.Field("accountName", schema.String().Trim().Min(2)),
		schema.Field("accountNumber", schema.String().Trim().Pattern(`^\d{6,20}$`).Message("Account number must be 6 to 20 digits")),
	)
}

func MerchantSchema() schema.ObjectRule {
	return schema.Object(
		schema.Field("code", schema.String().Trim().Pattern(`^[A-Z0-9]{3,20}$`).
			Message("Code must be 3 to 20 uppercase letters or digits")),
		schema.Field("name", schema.String().Trim().Min(2).Max(100)),
		schema.Field("email", schema.String().Trim().Format(schema.FormatEmail)),
		schema.Field("phoneNumber", schema.String().Trim().Format(schema.FormatE164)),
		schema.Field("category", schema.String().Optional()),
		schema.Field("status", schema.Enum("ACTIVE", "INACTIVE", "SUSPENDED").Default("ACTIVE")),
		schema.Field("address", addressSchema()),
		schema.Field("settlementAccount", settlementAccountSchema()),
	)
}

// --- Charges and contracts ---

func chargeRuleObject() schema.ObjectRule {
	money := schema.Number().Min(0).Optional().Nullable()
	return schema.Object(
		schema.Field("name", schema.String().Trim().Min(2)),
		schema.Field("ruleType", schema.Enum("FIXED", "PERCENTAGE")),
		schema.Field("fixedAmount", money),
		schema.Field("percentage", schema.Number().Min(0).Max(100).Optional().Nullable()),
		schema.Field("minAmount", money),
		schema.Field("maxAmount", money),
		schema.Field("currency", schema.String().Trim().Length(3).Default("UGX")),
	).Refine(
		schema.RequiredWhen("fixedAmount", "ruleType", []any{"FIXED"}, "Fixed amount is required for FIXED rules"),
		schema.RequiredWhen("percentage", "ruleType", []any{"PERCENTAGE"}, "Percentage is required for PERCENTAGE rules"),
		schema.Check("amount_range", []string{"maxAmount"}, "Maximum amount must not be below minimum amount",
			func(m map[string]any) bool {
				lo, lok := m["minAmount"].(float64)
				hi, hok := m["maxAmount"].(float64)
				return !lok || !hok || hi >= lo
			}),
	)
}

func ChargeRuleSchema() schema.ObjectRule { return chargeRuleObject() }

func ContractSchema() schema.ObjectRule {
	return schema.Object(
		schema.Field("merchantId", schema.String().Min(1).RequiredMessage("Merchant is required")),
		schema.Field("reference", schema.String().Trim().Min(3).Max(50)),
		schema.Field("paymentType", schema.Enum("PREPAID", "POSTPAID")),
		schema.Field("startDate", schema.Date()),
		schema.Field("endDate", schema.Date().Optional().Nullable()),
		schema.Field("autoRenew", schema.Boolean().Default(false)),
		schema.Field("chargeRules", schema.Array(chargeRuleObject()).Optional()),
	).Refine(schema.Check("date_range", []string{"endDate"}, "End date must not be before start date",
		func(m map[string]any) bool {
			start, sok := m["startDate"].(time.Time)
			end, eok := m["endDate"].(time.Time)
			return !sok || !eok || !end.Before(start)
		}))
}

// --- USSD ---

func USSDMenuSchema() schema.ObjectRule {
	item := schema.Object(
		schema.Field("label", schema.String().Trim().Min(1).Max(40)),
		schema.Field("action", schema.Enum("SUBMENU", "API_CALL", "END")),
		schema.Field("target", schema.String().Trim().Optional().Nullable()),
		schema.Field("order", schema.Number().Integer().Min(1)),
	).Refine(schema.RequiredWhen("target", "action", []any{"SUBMENU", "API_CALL"}, "Target is required for this action"))

	return schema.Object(
		schema.Field("code", schema.String().Trim().Pattern(`^\*\d{2,4}(\*\d{1,4})*#$`).
			Message("USSD code must look like *123# or *123*1#")),
		schema.Field("title", schema.String().Trim().Min(2).Max(60)),
		schema.Field("operatorType", schema.Enum("MTN", "AIRTEL", "ALL")),
		schema.Field("active", schema.Boolean().Default(true)),
		schema.Field("items", schema.Array(item).MinItems(1).MaxItems(9)),
	)
}

// --- API integrations ---

func APIIntegrationSchema() schema.ObjectRule {
	header := schema.Object(
		schema.Field("key", schema.String().Trim().Min(1)),
		schema.Field("value", schema.String()),
	)
	mapping := schema.Object(
		schema.Field("field", schema.String().Trim().Min(1)),
		schema.Field("source", schema.Enum("RESPONSE", "HEADER", "ERROR", "NONE")),
		schema.Field("path", schema.String().Trim().Optional().Nullable()),
	).Refine(schema.RequiredWhen("path", "source", []any{"RESPONSE", "HEADER", "ERROR"}, "Path is required for this source"))

	return schema.Object(
		schema.Field("name", schema.String().Trim().Min(2).Max(100)),
		schema.Field("url", schema.String().Trim().Format(schema.FormatURL).Message("Enter a valid URL")),
		schema.Field("method", schema.Enum("GET", "POST", "PUT", "PATCH", "DELETE")),
		schema.Field("authType", schema.Enum("NONE", "BASIC", "BEARER", "API_KEY").Default("NONE")),
		schema.Field("username", schema.String().Optional().Nullable()),
		schema.Field("password", schema.String().Optional().Nullable()),
		schema.Field("token", schema.String().Optional().Nullable()),
		schema.Field("apiKeyLocation", schema.Enum("BODY", "HEADER").Optional()),
		schema.Field("headers", schema.Array(header).MaxItems(20).Optional()),
		schema.Field("responseMapping", schema.Array(mapping).Optional()),
		schema.Field("timeoutSeconds", schema.Number().Integer().Min(1).Max(120).Default(30)),
		schema.Field("retry", schema.Boolean().Default(false)),
	).Refine(
		schema.RequiredWhen("username", "authType", []any{"BASIC"}, "Username is required for basic auth"),
		schema.RequiredWhen("password", "authType", []any{"BASIC"}, "Password is required for basic auth"),
		schema.RequiredWhen("token", "authType", []any{"BEARER", "API_KEY"}, "Token is required for this auth type"),
		schema.RequiredWhen("apiKeyLocation", "authType", []any{"API_KEY"}, "Choose where the API key is sent"),
	)
}
