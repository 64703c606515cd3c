package musickey

// Traditional Chinese characters and their simplified forms, aligned rune by
// rune. Only one-to-one conversions are listed, and no simplified form appears
// on the traditional side.
const (
	traditionalChars = "" +
		"並乾亂亞佔併來侖侶俁俠倆倉個們倫偉側偵偽傑傘傭傳債傷傾僂僅僉僑僕僥僨價儀儂億儈儉" +
		"儐儔償優儲儷儺儻儼兌兒內兩冊凈凍凜凱別刪剄則剗剛創劃劇劉劊劌劍劑勁動務勝勞勢勱勳" +
		"勵勸勻匭匯匱區協卻厙厭厲厴參叢吳呂咼員唄問啞啟喚喪喬單喲嗆嗇嗎嗚嗩嗶嘆嘔嘖嘗嘜嘩" +
		"嘮嘯嘰嘵嘸噝噠噥噦噲噴噸嚀嚇嚌嚐嚕嚦嚨嚴囀囂囈囑國圍園圓圖團埡執堅堊堯報場塊塋塒" +
		"塢塵塹墊墜墮墳墻墾壇壎壓壘壚壞壟壢壩壺壽夠夢夥奧奪奮妝姍娛婁婦婭媧媼媽嫋嫗嫵嫻嬈" +
		"嬋嬌嬤嬰嬸孌孫學孿宮寢實寧審寫寬寵寶將專尋對導尷屆屍屜屢層屨屬岡峯峴島峽崗崠崢嵐" +
		"嶄嶇嶗嶠嶧嶺嶼嶽巋巔帥師帳帶幀幃幗幟幣幫幬幹幾庫廁廂廄廈廚廝廟廠廡廢廣廬廳張強彈" +
		"彌彎彥後徑從徠徵徹恥悅悶惡惱惲惻愛愜愷態慍慘慚慟慣慫慮慳慶憂憊憐憑憚憤憲憶懇應懟" +
		"懨懲懷懸懺懼懾戀戇戔戧戩戰戲戶拋挾捫捲掃掄掙掛採揀揚換揮損搖搗搶摑摜摯摳摶摻撈撐" +
		"撓撟撣撥撫撲撻撾撿擁擄擇擊擋擔據擠擡擬擯擰擲擴擷擺擻擼擾攄攆攏攔攖攛攜攝攣攤攪攬" +
		"敘敵數斂斃斕斬斷於時晉晝暈暉暘暢暫曄曆曇曉曖曠曬書會朧東柵梔梘條梟棄棖棗棟棧棲椏" +
		"楊楓楨業極榪榮榿構槍槓槧槨槳樁樂樅樓標樞樣樸樹樺橈橋機橢橫檁檉檔檜檟檢檣檳檸檻櫃" +
		"櫓櫚櫛櫝櫞櫟櫥櫧櫨櫪櫫櫬櫳櫸櫻欄權欒欖欞歐歟歡歲歸歿殘殞殤殫殮殯殲殺毀毆毿氈氌氣" +
		"氫氬氳決沒沖況浹涇涼淚淨淪淵淶淺渙減渦測渾湊湞湯溈準溝溫滄滅滌滎滬滯滲滸滾滿漁漚" +
		"漢漣漬漲漵漸漿潑潔潛潤潯潰潿澀澆澇澗澠澤澦澩澮澱濁濃濕濘濟濤濫濰濱濺濼濾瀅瀆瀉瀋" +
		"瀏瀕瀘瀝瀟瀠瀧瀨瀲瀾灃灄灑灘灝灣灤灩災為烏烴無煉煒煙煢煥煩煬熒熗熱熾燁燄燈燉燒燙" +
		"燜營燦燭燴燼燾爍爐爛爭爺爾牀牆牘牽犖犛犢犧狀狹狽猙猶猻獄獅獨獪獫獰獲獵獷獸獺獻獼" +
		"玀現琺琿瑋瑣瑤瑩瑪璉璣璫環璽瓊瓏瓔瓚甌產甦畝畢畫異當疇疊痙瘂瘋瘍瘓瘡瘧瘻療癆癇癒" +
		"癘癡癢癤癮癰癱癲發皚皰皺盜盞盡監盤盧眥眾睜睞瞞瞼矚矯硤硨硯碩碭確碼磚磣磧磯磽礎礙" +
		"礦礪礫礬礱祿禍禎禕禦禪禮禰禿稈種稱穌積穠穡穢穩窩窪窮窯窺竄竅竇竊競筆筍筧箋箏節築" +
		"篤篩簍簡簽簾籃籌籟籠籬籲粵糞糧糲糾紀紂約紅紆紇紈紉紋納紐紓純紕紗紙紛紜紡細紱紲紳" +
		"紹紺紼紿絀終組絆結絕絛絝絞絡絢給絨統絲絳絹綁綃綆綈綏經綜綢綫綬維綱網綴綸綹綺綻綽" +
		"綾綿緄緇緊緋緒緗緘緙線緝緞締緡緣緦編緩緬緯緱緲練緶緹縈縉縊縋縐縑縛縝縞縟縣縫縭縱" +
		"縶縷縹總績繅繆繒織繕繚繞繡繢繩繳繹繼繽纈續纏纔纜罈罌罰罷羅羆羈羋羥義習翹耬聖聯聰" +
		"聲聳聵聶職聹聽聾肅脅脈脛脫脹腎腡腦腫腳腸膃膕膚膠膩膽膾膿臉臍臏臘臚臠臨與興舉舊舖" +
		"艙艤艦艫艱芻苧茲莊莖莢莧華萇萊萬萵葉葒葦葯葷蒔蒞蒼蓀蓋蓮蓯蓴蓽蔔蔞蔣蔥蔦蔭蕁蕆蕎" +
		"蕒蕕蕘蕢蕩蕪蕭蕷薈薊薌薑薔薦薩薺藍藎藝藥藪藶藹藺蘄蘆蘇蘊蘋蘚蘞蘢蘭蘺蘿虛虜號虧虯" +
		"蛺蛻蜆蝕蝟蝦蝸螄螞螢螻螿蟄蟈蟎蟣蟬蟯蟲蟶蟻蠅蠆蠍蠐蠑蠔蠟蠣蠱蠶蠻衆術衛衝袞裏補裝" +
		"裡製褌褘褲褳褸襇襖襝襠襤襪襯襲見規覓視覘覡覦親覬覯覲覷覺覽覿觀觴觶觸訂訃計訊訌討" +
		"訐訓訕訖託記訛訝訟訣訥訪設許訴訶診註詁詆詎詐詔評詘詛詞詠詡詢詣試詩詫詬詮詰話該詳" +
		"詼詿誄誅誆誇誌認誑誕誘誚語誠誡誣誤誥誦誨說誰課誹誼調諄談諉請諏諑諒諜諞諢諤諦諧諫" +
		"諭諮諳諶諸諺諼諾謀謁謂謊謎謐謔謗謙講謝謠謨謳謹證譎譏譙譚譜譫譯譴護譽讀變讒讓讕讖" +
		"讚讜讞豈豎豐豔豬貓貝貞負財貢貧貨販貪貫責貯貰貲貳貴貶買貸貺費貼貽貿賀賂賃賄賅資賈" +
		"賊賑賒賓賜賞賠賢賣賤賦質賬賭賴賺購賽贄贅贈贊贍贏贓趕趙趨踐蹌蹣蹤蹺躉躊躍躡躪軀車" +
		"軋軌軍軒軔軛軟軫軸軼較載輊輔輕輛輝輦輩輪輯輸輾輿轂轄轅轆轉轍轟辦辭辯農這連週進運" +
		"過達違遙遜遞遠適遲遷選遺遼邁還邊邏郵鄉鄒鄔鄧鄭鄰鄲鄴鄺醃醜醞醫醱釀釁釋釗釘針釣釦" +
		"鈍鈔鈕鈞鈣鈴鈾鉀鉑鉛鉤鉬銀銅銘銜銳銷鋁鋒鋤鋪鋸鋼錄錘錢錦錫錯錶鍊鍋鍍鍛鍬鍵鍾鎂鎊" +
		"鎖鎣鎮鎳鏈鏟鏡鏽鐘鐮鐲鐵鑄鑑鑒鑣鑪鑰鑲鑷鑼鑽鑿長門閃閉開閏閑間閔閘閣閥閨閩閱閻闆" +
		"闈闊闕闖關闡陣陰陳陸陽隊階隕際隨險隱隻雋雖雙雛雜雞離難雲電霑霧霽靂靄靈靜靦靨鞏韁" +
		"韃韋韌韓韙韻響頁頂頃項順須頌預頑頒頓頗領頭頰頷頸頹頻顆題額顎顏願顛類顧顫顯顱風颳" +
		"颶颼飄飆飛飢飯飲飼飽飾餃餅養餒餓餘餚餡館餵饅饋饑饒饞馬馭馮馳駁駐駒駕駛駝駭駱駿騁" +
		"騎騖騙騫騰騷驀驃驅驍驕驗驚驛驟驢驥驪骯髏體髮鬆鬍鬢鬥鬧鬱魎魘魚魯鮑鮮鯉鯨鯽鰍鰭鱗" +
		"鱷鳥鳧鳩鳳鳴鴉鴨鴻鴿鵑鵝鵡鵬鶯鶴鷗鷹鷺鸚鸞鹵鹼鹽麗麥麵麼黃點黨黴黷鼉齊齋齒齡齣齧" +
		"齶龍龐龕龜"

	simplifiedChars = "" +
		"并干乱亚占并来仑侣俣侠俩仓个们伦伟侧侦伪杰伞佣传债伤倾偻仅佥侨仆侥偾价仪侬亿侩俭" +
		"傧俦偿优储俪傩傥俨兑儿内两册净冻凛凯别删刭则刬刚创划剧刘刽刿剑剂劲动务胜劳势劢勋" +
		"励劝匀匦汇匮区协却厍厌厉厣参丛吴吕呙员呗问哑启唤丧乔单哟呛啬吗呜唢哔叹呕啧尝唛哗" +
		"唠啸叽哓呒咝哒哝哕哙喷吨咛吓哜尝噜呖咙严啭嚣呓嘱国围园圆图团垭执坚垩尧报场块茔埘" +
		"坞尘堑垫坠堕坟墙垦坛埙压垒垆坏垄坜坝壶寿够梦伙奥夺奋妆姗娱娄妇娅娲媪妈袅妪妩娴娆" +
		"婵娇嬷婴婶娈孙学孪宫寝实宁审写宽宠宝将专寻对导尴届尸屉屡层屦属冈峰岘岛峡岗岽峥岚" +
		"崭岖崂峤峄岭屿岳岿巅帅师帐带帧帏帼帜币帮帱干几库厕厢厩厦厨厮庙厂庑废广庐厅张强弹" +
		"弥弯彦后径从徕征彻耻悦闷恶恼恽恻爱惬恺态愠惨惭恸惯怂虑悭庆忧惫怜凭惮愤宪忆恳应怼" +
		"恹惩怀悬忏惧慑恋戆戋戗戬战戏户抛挟扪卷扫抡挣挂采拣扬换挥损摇捣抢掴掼挚抠抟掺捞撑" +
		"挠挢掸拨抚扑挞挝捡拥掳择击挡担据挤抬拟摈拧掷扩撷摆擞撸扰摅撵拢拦撄撺携摄挛摊搅揽" +
		"叙敌数敛毙斓斩断于时晋昼晕晖旸畅暂晔历昙晓暧旷晒书会胧东栅栀枧条枭弃枨枣栋栈栖桠" +
		"杨枫桢业极杩荣桤构枪杠椠椁桨桩乐枞楼标枢样朴树桦桡桥机椭横檩柽档桧槚检樯槟柠槛柜" +
		"橹榈栉椟橼栎橱槠栌枥橥榇栊榉樱栏权栾榄棂欧欤欢岁归殁残殒殇殚殓殡歼杀毁殴毵毡氇气" +
		"氢氩氲决没冲况浃泾凉泪净沦渊涞浅涣减涡测浑凑浈汤沩准沟温沧灭涤荥沪滞渗浒滚满渔沤" +
		"汉涟渍涨溆渐浆泼洁潜润浔溃涠涩浇涝涧渑泽滪泶浍淀浊浓湿泞济涛滥潍滨溅泺滤滢渎泻沈" +
		"浏濒泸沥潇潆泷濑潋澜沣滠洒滩灏湾滦滟灾为乌烃无炼炜烟茕焕烦炀荧炝热炽烨焰灯炖烧烫" +
		"焖营灿烛烩烬焘烁炉烂争爷尔床墙牍牵荦牦犊牺状狭狈狰犹狲狱狮独狯猃狞获猎犷兽獭献猕" +
		"猡现珐珲玮琐瑶莹玛琏玑珰环玺琼珑璎瓒瓯产苏亩毕画异当畴叠痉痖疯疡痪疮疟瘘疗痨痫愈" +
		"疠痴痒疖瘾痈瘫癫发皑疱皱盗盏尽监盘卢眦众睁睐瞒睑瞩矫硖砗砚硕砀确码砖碜碛矶硗础碍" +
		"矿砺砾矾砻禄祸祯祎御禅礼祢秃秆种称稣积秾穑秽稳窝洼穷窑窥窜窍窦窃竞笔笋笕笺筝节筑" +
		"笃筛篓简签帘篮筹籁笼篱吁粤粪粮粝纠纪纣约红纡纥纨纫纹纳纽纾纯纰纱纸纷纭纺细绂绁绅" +
		"绍绀绋绐绌终组绊结绝绦绔绞络绚给绒统丝绛绢绑绡绠绨绥经综绸线绶维纲网缀纶绺绮绽绰" +
		"绫绵绲缁紧绯绪缃缄缂线缉缎缔缗缘缌编缓缅纬缑缈练缏缇萦缙缢缒绉缣缚缜缟缛县缝缡纵" +
		"絷缕缥总绩缫缪缯织缮缭绕绣缋绳缴绎继缤缬续缠才缆坛罂罚罢罗罴羁芈羟义习翘耧圣联聪" +
		"声耸聩聂职聍听聋肃胁脉胫脱胀肾脶脑肿脚肠腽腘肤胶腻胆脍脓脸脐膑腊胪脔临与兴举旧铺" +
		"舱舣舰舻艰刍苎兹庄茎荚苋华苌莱万莴叶荭苇药荤莳莅苍荪盖莲苁莼荜卜蒌蒋葱茑荫荨蒇荞" +
		"荬莸荛蒉荡芜萧蓣荟蓟芗姜蔷荐萨荠蓝荩艺药薮苈蔼蔺蕲芦苏蕴苹藓蔹茏兰蓠萝虚虏号亏虬" +
		"蛱蜕蚬蚀猬虾蜗蛳蚂萤蝼螀蛰蝈螨虮蝉蛲虫蛏蚁蝇虿蝎蛴蝾蚝蜡蛎蛊蚕蛮众术卫冲衮里补装" +
		"里制裈袆裤裢褛裥袄裣裆褴袜衬袭见规觅视觇觋觎亲觊觏觐觑觉览觌观觞觯触订讣计讯讧讨" +
		"讦训讪讫托记讹讶讼诀讷访设许诉诃诊注诂诋讵诈诏评诎诅词咏诩询诣试诗诧诟诠诘话该详" +
		"诙诖诔诛诓夸志认诳诞诱诮语诚诫诬误诰诵诲说谁课诽谊调谆谈诿请诹诼谅谍谝诨谔谛谐谏" +
		"谕谘谙谌诸谚谖诺谋谒谓谎谜谧谑谤谦讲谢谣谟讴谨证谲讥谯谭谱谵译谴护誉读变谗让谰谶" +
		"赞谠谳岂竖丰艳猪猫贝贞负财贡贫货贩贪贯责贮贳赀贰贵贬买贷贶费贴贻贸贺赂赁贿赅资贾" +
		"贼赈赊宾赐赏赔贤卖贱赋质账赌赖赚购赛贽赘赠赞赡赢赃赶赵趋践跄蹒踪跷趸踌跃蹑躏躯车" +
		"轧轨军轩轫轭软轸轴轶较载轾辅轻辆辉辇辈轮辑输辗舆毂辖辕辘转辙轰办辞辩农这连周进运" +
		"过达违遥逊递远适迟迁选遗辽迈还边逻邮乡邹邬邓郑邻郸邺邝腌丑酝医酦酿衅释钊钉针钓扣" +
		"钝钞钮钧钙铃铀钾铂铅钩钼银铜铭衔锐销铝锋锄铺锯钢录锤钱锦锡错表炼锅镀锻锹键钟镁镑" +
		"锁蓥镇镍链铲镜锈钟镰镯铁铸鉴鉴镳炉钥镶镊锣钻凿长门闪闭开闰闲间闵闸阁阀闺闽阅阎板" +
		"闱阔阙闯关阐阵阴陈陆阳队阶陨际随险隐只隽虽双雏杂鸡离难云电沾雾霁雳霭灵静腼靥巩缰" +
		"鞑韦韧韩韪韵响页顶顷项顺须颂预顽颁顿颇领头颊颔颈颓频颗题额颚颜愿颠类顾颤显颅风刮" +
		"飓飕飘飙飞饥饭饮饲饱饰饺饼养馁饿余肴馅馆喂馒馈饥饶馋马驭冯驰驳驻驹驾驶驼骇骆骏骋" +
		"骑骛骗骞腾骚蓦骠驱骁骄验惊驿骤驴骥骊肮髅体发松胡鬓斗闹郁魉魇鱼鲁鲍鲜鲤鲸鲫鳅鳍鳞" +
		"鳄鸟凫鸠凤鸣鸦鸭鸿鸽鹃鹅鹉鹏莺鹤鸥鹰鹭鹦鸾卤碱盐丽麦面么黄点党霉黩鼍齐斋齿龄出啮" +
		"腭龙庞龛龟"
)
