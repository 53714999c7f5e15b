package notify

const tableTemplate = `<table style="border-collapse: collapse; width: 100%; font-family: Arial, sans-serif; font-size: 14px;">
<tr style="background-color: #4A90E2; color: #FFFFFF;">
<th style="padding: 8px; border: 1px solid #DDDDDD; text-align: left;">Posted</th>
<th style="padding: 8px; border: 1px solid #DDDDDD; text-align: left;">Item</th>
<th style="padding: 8px; border: 1px solid #DDDDDD; text-align: left;">Name</th>
<th style="padding: 8px; border: 1px solid #DDDDDD; text-align: left;">City</th>
<th style="padding: 8px; border: 1px solid #DDDDDD; text-align: left;">Contact</th>
<th style="padding: 8px; border: 1px solid #DDDDDD; text-align: left;">Details</th>
</tr>
{% for row in rows %}<tr style="background-color: {% if row.highlight %}#FFFFCC{% else %}#FFFFFF{% endif %};">
<td style="padding: 8px; border: 1px solid #DDDDDD;">{{ row.posted | escape }}</td>
<td style="padding: 8px; border: 1px solid #DDDDDD;">{{ row.item | escape }}</td>
<td style="padding: 8px; border: 1px solid #DDDDDD;">{{ row.name | escape }}</td>
<td style="padding: 8px; border: 1px solid #DDDDDD;">{{ row.city | escape }}</td>
<td style="padding: 8px; border: 1px solid #DDDDDD;"><a href="mailto:{{ row.email | escape }}">{{ row.email | escape }}</a>{% if row.phone != "" %}<br>{{ row.phone | escape }}{% endif %}</td>
<td style="padding: 8px; border: 1px solid #DDDDDD;">{{ row.details | escape }}</td>
</tr>
{% endfor %}</table>`

const submitterTemplate = `<p>Hello {{ name | escape }},</p>
{% if has_matches %}<p>We found matches for your <b>{{ item | escape }}</b>:</p>{{ table }}{% else %}<p>No current matches for <b>{{ item | escape }}</b>. We will notify you if a new match appears.</p>{% endif %}
<p>{{ signature | escape }}</p>`

const subscriberTemplate = `<p>Hello {{ name | escape }},</p>
<p>A new match for your <b>{{ item | escape }}</b> has been found!</p>
{{ table }}
<hr>
<p style="color: gray; font-size: 12px;">To stop these emails, fill out the <a href="{{ opt_out_url | escape }}">Opt-Out Form</a>.</p>`

const optOutConfirmedTemplate = `<p>Hello,</p>
<p>This email confirms that we have located your record and you have successfully opted out of notifications for <b>{{ item | escape }}</b>.</p>
<p>Your listing is now inactive. If you have a different item to list, you can resubmit here: <a href="{{ submission_url | escape }}">{{ submission_url | escape }}</a></p>
<p>{{ signature | escape }}</p>`

const optOutFailedTemplate = `<p>Hello,</p>
<p>We received an opt-out request for <b>{{ item | escape }}</b>, but <b>we were unable to find a matching submission in our records.</b></p>
<p>To stop notifications, please <a href="{{ opt_out_url | escape }}">submit the Opt-Out form again</a> ensuring you use the <b>exact email</b> and <b>item name</b> from your original submission.</p>
<p>{{ signature | escape }}</p>`

const partnerTemplate = `<p>Hello {{ name | escape }},</p>
<p>{{ requester | escape }} reported that your exchange of <b>{{ item | escape }}</b> is complete, so your listing has been closed and you will no longer receive match alerts for it.</p>
<p>If this is a mistake, or you have another item to list, you can resubmit here: <a href="{{ submission_url | escape }}">{{ submission_url | escape }}</a></p>
<p>{{ signature | escape }}</p>`

const expirationTemplate = `<p>Hello {{ name | escape }},</p>
<p>Your listing for <b>{{ item | escape }}</b> expires in 7 days.</p>
<p>To stay in the matching system, please resubmit here: <a href="{{ submission_url | escape }}">{{ submission_url | escape }}</a></p>`
