package service

import "fmt"

func verificationEmailTemplate(verifyURL, appName string) (subject, body string) {
	subject = fmt.Sprintf("Verify your %s account", appName)
	body = fmt.Sprintf(`Hi,

Click the link below to verify your email address and activate your account:

%s

The link expires in 24 hours. If you didn't request this, you can ignore this email.

The %s team`, verifyURL, appName)
	return subject, body
}
