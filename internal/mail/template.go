package mail

const otpEmailTemplate = `<!DOCTYPE html>
<html>
  <body style="margin:0;padding:0;background-color:#f4f5f7;font-family:Arial,Helvetica,sans-serif;">
    <table role="presentation" width="100%" cellpadding="0" cellspacing="0">
      <tr>
        <td align="center" style="padding:32px 16px;">
          <table role="presentation" width="420" cellpadding="0" cellspacing="0" style="background:#ffffff;border-radius:8px;padding:32px;">
            <tr>
              <td align="center" style="font-size:18px;color:#111827;padding-bottom:16px;">
                Verify your account
              </td>
            </tr>
            <tr>
              <td align="center" style="font-size:14px;color:#4b5563;padding-bottom:24px;">
                Use the one-time code below to continue. It expires in 5 minutes.
              </td>
            </tr>
            <tr>
              <td align="center" style="font-size:32px;letter-spacing:8px;font-weight:bold;color:#111827;padding-bottom:24px;">
                {{OTP_CODE}}
              </td>
            </tr>
            <tr>
              <td align="center" style="font-size:12px;color:#9ca3af;">
                If you did not request this code, you can safely ignore this email.
              </td>
            </tr>
          </table>
        </td>
      </tr>
    </table>
  </body>
</html>`
