package dispatch

// Downstream mutation documents. Names double as metric and audit labels.
const (
	DeleteUserMutation = "deleteUserByFxaId"
	deleteUserDocument = `mutation deleteUserByFxaId($id: ID!) {
  deleteUserByFxaId(id: $id)
}`

	UpdateEmailMutation = "updateUserEmailByFxaId"
	updateEmailDocument = `mutation updateUserEmailByFxaId($id: ID!, $email: String!) {
  updateUserEmailByFxaId(id: $id, email: $email) {
    username
  }
}`

	MigrateAppleUserMutation = "migrateAppleUser"
	migrateAppleUserDocument = `mutation migrateAppleUser($fxaId: ID!, $email: String!) {
  migrateAppleUser(fxaId: $fxaId, email: $email)
}`
)
