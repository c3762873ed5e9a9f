package gen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnake(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Username", "username"},
		{"FullName", "full_name"},
		{"HTTPCode", "http_code"},
		{"UserID", "user_id"},
		{"OrderLine", "order_line"},
		{"already_snake", "already_snake"},
		{"A", "a"},
		{"", ""},
		{"userInfo", "user_info"},
		{"UserIDs", "user_ids"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, snake(tt.input))
		})
	}
}

func TestPascal(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"user_info", "UserInfo"},
		{"full_name", "FullName"},
		{"user_id", "UserID"},
		{"http_code", "HTTPCode"},
		{"full-admin", "FullAdmin"},
		{"a", "A"},
		{"a_b", "AB"},
		{"order_id", "OrderID"},
		{"api_url", "APIURL"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, pascal(tt.input))
		})
	}
}

func TestCamel(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"user_info", "userInfo"},
		{"user_id", "userID"},
		{"http_code", "httpCode"},
		{"full-admin", "fullAdmin"},
		{"user", "user"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, camel(tt.input))
		})
	}
}

func TestPlural(t *testing.T) {
	assert.Equal(t, "Users", plural("User"))
	assert.Equal(t, "Categories", plural("Category"))
	assert.Equal(t, "OrderLines", plural("OrderLine"))
}

func TestTableName(t *testing.T) {
	assert.Equal(t, "users", TableName("User"))
	assert.Equal(t, "order_lines", TableName("OrderLine"))
	assert.Equal(t, "categories", TableName("Category"))
}

func TestAddAcronym(t *testing.T) {
	AddAcronym("ROWSET")
	assert.Equal(t, "ROWSETTest", pascal("rowset_test"))
}

func TestIsSeparator(t *testing.T) {
	assert.True(t, isSeparator('_'))
	assert.True(t, isSeparator('-'))
	assert.True(t, isSeparator(' '))
	assert.True(t, isSeparator('\t'))
	assert.False(t, isSeparator('a'))
	assert.False(t, isSeparator('1'))
}
