package template

var firstNames = []string{
	"Ada", "Alan", "Alice", "Amara", "Ben", "Carlos", "Chen", "Clara", "Daniel", "Diana",
	"Elena", "Emil", "Fatima", "Felix", "Grace", "Hana", "Hugo", "Ines", "Ivan", "Jamal",
	"Julia", "Kai", "Kenji", "Laura", "Leo", "Lina", "Marco", "Maya", "Nadia", "Noah",
	"Olga", "Omar", "Paula", "Priya", "Rafael", "Rosa", "Sam", "Sofia", "Tariq", "Yara",
}

var lastNames = []string{
	"Adams", "Alvarez", "Bauer", "Becker", "Costa", "Dubois", "Evans", "Fischer", "Garcia", "Hansen",
	"Hoffmann", "Ito", "Jensen", "Kim", "Kowalski", "Lopez", "Martin", "Moreau", "Nakamura", "Novak",
	"Okafor", "Patel", "Petrov", "Quinn", "Rossi", "Santos", "Schmidt", "Silva", "Tanaka", "Weber",
}

var emailDomains = []string{
	"example.com", "example.org", "example.net", "mail.test", "mockdeck.test",
}

const alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
